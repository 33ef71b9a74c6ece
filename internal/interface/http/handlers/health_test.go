package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("1.2.3")

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "1.2.3", status.Version)

	c.AddCheck("postgres", NewPingCheck(pingerFunc(func(context.Context) error { return nil })))
	c.AddCheck("redis", NewPingCheck(pingerFunc(func(context.Context) error { return errors.New("connection refused") })))
	c.AddCheck("broker", func(context.Context) error { return errors.New("down") })

	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "failing: broker, redis", status.Message)
	require.Len(t, status.Checks, 3)
	assert.True(t, status.Checks["postgres"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
}

func TestCompositeHealthChecker_CheckTimeout(t *testing.T) {
	c := NewCompositeHealthChecker("")
	c.timeout = 10 * time.Millisecond
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Checks["slow"].Message, "deadline exceeded")
}
