package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
)

func TestMessageCodec_RoundTripsThroughChannel(t *testing.T) {
	n := &notification.Notification{
		ID:        "n-1",
		UserID:    "u-1",
		Type:      notification.TypeLevelUp,
		Title:     "Level up",
		Message:   "You reached level 3",
		CreatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	data, err := EncodeMessage(notification.NewNotificationMessage(n))
	require.NoError(t, err)

	userID, msg, err := DecodeMessage(notification.ChannelFor("u-1"), string(data))
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, notification.MessageNewNotification, msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "n-1", msg.Notification.ID)
}

func TestDecodeMessage_RejectsForeignChannel(t *testing.T) {
	_, _, err := DecodeMessage("other:u-1", `{"type":"unread_count"}`)
	assert.Error(t, err)

	_, _, err = DecodeMessage("realtime:user:", `{"type":"unread_count"}`)
	assert.Error(t, err)

	_, _, err = DecodeMessage("realtime:user:u-1", `not json`)
	assert.ErrorIs(t, err, ErrCacheSerialization)
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@cache.internal:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "stats:overview:u-1", OverviewKey("u-1"))
}
