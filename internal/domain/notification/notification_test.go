package notification

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Validation(t *testing.T) {
	_, err := New("", Draft{Type: TypeSystem, Title: "x"}, now)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = New("u1", Draft{Type: "digest", Title: "x"}, now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = New("u1", Draft{Type: TypeSystem, Title: "  "}, now)
	assert.True(t, shared.IsValidation(err))

	n, err := New("u1", Draft{Type: TypeNewQuiz, Title: "New quiz", Related: Related{CourseID: "c1", QuizID: "q1"}}, now)
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	require.NotNil(t, n.RelatedCourseID)
	assert.Equal(t, "c1", *n.RelatedCourseID)
	assert.Nil(t, n.RelatedUserID)
}

func TestReadStateMachine(t *testing.T) {
	n, err := New("u1", Draft{Type: TypeSystem, Title: "Hi"}, now)
	require.NoError(t, err)

	assert.True(t, n.MarkRead(now))
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)

	assert.False(t, n.MarkRead(now.Add(time.Hour)))
	assert.Equal(t, now, *n.ReadAt)

	assert.ErrorIs(t, n.MarkUnread(), shared.ErrStateTransition)
	assert.True(t, n.IsRead)
}

func TestNewNotificationMessage_WireShape(t *testing.T) {
	n := Draft{Type: TypeLevelUp, Title: "Level up", Message: "You are now level 2"}.For("u1", now)
	raw, err := json.Marshal(NewNotificationMessage(n))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "new_notification", got["type"])

	inner := got["notification"].(map[string]interface{})
	for _, key := range []string{"id", "title", "message", "type", "is_read", "created_at", "related_course_id", "related_quiz_id", "related_user_id"} {
		assert.Contains(t, inner, key)
	}
	assert.Nil(t, inner["related_course_id"])
	assert.Equal(t, false, inner["is_read"])
}

func TestUnreadCountMessage_ZeroIsSerialized(t *testing.T) {
	raw, err := json.Marshal(UnreadCountMessage(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unread_count","count":0}`, string(raw))
}

func TestMilestones(t *testing.T) {
	ms := NewMilestones([]int{500, 100, 0, 250, 100})
	assert.Equal(t, Milestones{100, 250, 500}, ms)
	assert.Equal(t, []int{100, 250}, ms.Crossed(50, 300))
	assert.Empty(t, ms.Crossed(100, 249))
	assert.True(t, ms.Hit(250))
	assert.False(t, ms.Hit(251))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ñ", 300)
	assert.Len(t, []rune(Truncate(long, 200)), 200)
	assert.Equal(t, "abc", Truncate("abc", 200))
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Limit: 1000, Offset: -3}.Normalize()
	assert.Equal(t, MaxListLimit, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Equal(t, DefaultListLimit, ListFilter{}.Normalize().Limit)
}
