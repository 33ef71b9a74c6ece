package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

func newBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.Middlewares = []Middleware{RecoveryMiddleware(logger.Nop())}
	return NewInMemoryEventBus(cfg)
}

func levelEvent() shared.Event {
	return shared.NewLevelChangedEvent("u1", 1, 2, 100)
}

func TestPublish_OrderedAndSynchronous(t *testing.T) {
	bus := newBus()
	var calls []string

	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, func(ctx context.Context, e shared.Event) error {
		calls = append(calls, "first")
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(ctx context.Context, e shared.Event) error {
		calls = append(calls, "global")
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, func(ctx context.Context, e shared.Event) error {
		calls = append(calls, "second")
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), levelEvent()))
	assert.Equal(t, []string{"first", "second", "global"}, calls)
	assert.EqualValues(t, 1, bus.Metrics().Published(shared.EventLevelChanged))
}

func TestPublish_FirstErrorAborts(t *testing.T) {
	bus := newBus()
	boom := errors.New("boom")
	ranAfter := false

	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, func(context.Context, shared.Event) error { return boom }))
	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, func(context.Context, shared.Event) error {
		ranAfter = true
		return nil
	}))

	err := bus.Publish(context.Background(), levelEvent())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ranAfter)
	assert.EqualValues(t, 1, bus.Metrics().Snapshot().HandlerFailures)
}

func TestPublish_PanicBecomesError(t *testing.T) {
	bus := newBus()
	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, func(context.Context, shared.Event) error {
		panic("nil map")
	}))

	err := bus.Publish(context.Background(), levelEvent())
	assert.ErrorIs(t, err, ErrHandlerPanic)
}

func TestPublish_DepthLimit(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.MaxDepth = 3
	bus := NewInMemoryEventBus(cfg)

	var handler shared.EventHandler
	handler = func(ctx context.Context, e shared.Event) error {
		return bus.Publish(ctx, e)
	}
	require.NoError(t, bus.Subscribe(shared.EventLevelChanged, handler))

	err := bus.Publish(context.Background(), levelEvent())
	assert.ErrorIs(t, err, ErrCascadeTooDeep)
}

func TestClosedBus(t *testing.T) {
	bus := newBus()
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), levelEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelChanged, func(context.Context, shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Error(t, bus.Subscribe(shared.EventLevelChanged, nil))
}
