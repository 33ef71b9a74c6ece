package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, shared.ErrUserNotFound, nil, "x"))
	assert.ErrorIs(t, translate(pgx.ErrNoRows, shared.ErrUserNotFound, nil, "x"), shared.ErrUserNotFound)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}, nil, shared.ErrAlreadyEnrolled, "x"), shared.ErrAlreadyEnrolled)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}, nil, shared.ErrQuizXPAlreadyAwarded, "create attempt"), shared.ErrQuizXPAlreadyAwarded)

	raw := errors.New("boom")
	err := translate(raw, shared.ErrUserNotFound, nil, "load user")
	assert.ErrorIs(t, err, raw)
	assert.Contains(t, err.Error(), "failed to load user")
}

func TestMigrations_Ordered(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL, m.Name)
		assert.NotEmpty(t, m.DownSQL, m.Name)
	}

	last := migrations[len(migrations)-1]
	assert.Contains(t, last.UpSQL, "uniq_quiz_attempts_xp_award")
	assert.Contains(t, last.UpSQL, "WHERE xp_awarded > 0")
}

func TestActiveTx_ClearedHolderFallsBack(t *testing.T) {
	assert.Nil(t, activeTx(context.Background()))

	holder := &txHolder{}
	ctx := context.WithValue(context.Background(), txKey{}, holder)
	assert.Nil(t, activeTx(ctx))
}

func TestNotificationCopyRow(t *testing.T) {
	course := "0b6c3b2e-6f0a-4a53-9a55-2f0c7f0e9b11"
	n := &notification.Notification{
		ID:              "5a3e2c1d-1111-4c3b-8a2e-1f0e9d8c7b6a",
		UserID:          "7d2b4a6c-2222-4e1f-9b3a-0c9d8e7f6a5b",
		Type:            notification.TypeNewCourse,
		Title:           "t",
		Message:         "m",
		RelatedCourseID: &course,
	}
	row, err := notificationCopyRow(n)
	require.NoError(t, err)
	require.Len(t, row, len(notificationCopyColumns))
	assert.Nil(t, row[9])
	assert.Nil(t, row[10])

	n.UserID = "not-a-uuid"
	_, err = notificationCopyRow(n)
	assert.Error(t, err)
}
