// Package messaging implements the in-process event bus that drives the
// progress cascade. Delivery is synchronous and ordered: Publish returns only
// after every subscriber has run, and the first handler error aborts the
// remaining handlers and is returned to the publisher.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers in subscription order.
// Handlers for the specific type run first, then global handlers.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	middlewares []Middleware
	maxDepth    int
	logger      *logger.Logger
	metrics     *EventBusMetrics
	closed      bool
}

// InMemoryEventBusConfig configures NewInMemoryEventBus.
type InMemoryEventBusConfig struct {
	Logger        *logger.Logger
	EnableMetrics bool

	// MaxDepth bounds nested publishes (an event published from inside a
	// handler). Exceeding it returns ErrCascadeTooDeep.
	MaxDepth int

	// Middlewares wrap every handler, outermost first.
	Middlewares []Middleware
}

const defaultMaxDepth = 8

// DefaultInMemoryEventBusConfig enables metrics.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{EnableMetrics: true, MaxDepth: defaultMaxDepth}
}

// NewInMemoryEventBus creates an open bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaultMaxDepth
	}
	bus := &InMemoryEventBus{
		handlers:    make(map[shared.EventType][]shared.EventHandler),
		middlewares: config.Middlewares,
		maxDepth:    config.MaxDepth,
		logger:      config.Logger.With(logger.Component("event_bus")),
	}
	if config.EnableMetrics {
		bus.metrics = newEventBusMetrics()
	}
	return bus
}

var errNilHandler = errors.New("event bus: nil handler")

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.subscribe(eventType, handler)
}

// SubscribeAll registers a handler that runs after the type-specific ones
// for every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.subscribe("", handler)
}

func (b *InMemoryEventBus) subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	if eventType == "" {
		b.allHandlers = append(b.allHandlers, b.wrap(handler))
	} else {
		b.handlers[eventType] = append(b.handlers[eventType], b.wrap(handler))
	}
	b.logger.Debug("handler subscribed", logger.EventType(string(eventType)))
	return nil
}

func (b *InMemoryEventBus) wrap(h shared.EventHandler) shared.EventHandler {
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		h = b.middlewares[i](h)
	}
	return h
}

type depthKey struct{}

// Publish runs every handler for the event, in order, on the caller's goroutine.
func (b *InMemoryEventBus) Publish(ctx context.Context, event shared.Event) error {
	if event == nil {
		return errors.New("event bus: nil event")
	}

	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= b.maxDepth {
		return fmt.Errorf("%w: %s at depth %d", ErrCascadeTooDeep, event.EventType(), depth)
	}
	ctx = context.WithValue(ctx, depthKey{}, depth+1)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.published(event.EventType())
	}

	for i, handler := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.execute(ctx, event, handler); err != nil {
			return fmt.Errorf("handler %d for %s: %w", i, event.EventType(), err)
		}
	}

	return nil
}

func (b *InMemoryEventBus) execute(ctx context.Context, event shared.Event, handler shared.EventHandler) error {
	if b.metrics == nil {
		return handler(ctx, event)
	}
	start := time.Now()
	err := handler(ctx, event)
	b.metrics.handled(time.Since(start), err)
	return err
}

// Close stops accepting subscriptions and publishes.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns nil when metrics are disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes per event type and handler outcomes.
type EventBusMetrics struct {
	mu          sync.Mutex
	byType      map[shared.EventType]int64
	executions  atomic.Int64
	failures    atomic.Int64
	handlerTime atomic.Int64
}

func newEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{byType: make(map[shared.EventType]int64)}
}

func (m *EventBusMetrics) published(t shared.EventType) {
	m.mu.Lock()
	m.byType[t]++
	m.mu.Unlock()
}

func (m *EventBusMetrics) handled(d time.Duration, err error) {
	m.executions.Add(1)
	m.handlerTime.Add(int64(d))
	if err != nil {
		m.failures.Add(1)
	}
}

// Published returns how many times eventType was published.
func (m *EventBusMetrics) Published(eventType shared.EventType) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byType[eventType]
}

// EventBusMetricsSnapshot is a point-in-time copy of the counters.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerFailures        int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
}

// Snapshot copies the counters. The success rate is 1 before any handler ran.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.Lock()
	var total int64
	for _, n := range m.byType {
		total += n
	}
	m.mu.Unlock()

	snap := EventBusMetricsSnapshot{
		TotalPublished:     total,
		TotalHandlerExecs:  m.executions.Load(),
		HandlerFailures:    m.failures.Load(),
		HandlerSuccessRate: 1,
	}
	if snap.TotalHandlerExecs > 0 {
		snap.HandlerSuccessRate = float64(snap.TotalHandlerExecs-snap.HandlerFailures) / float64(snap.TotalHandlerExecs)
		snap.AverageHandlerDuration = time.Duration(m.handlerTime.Load() / snap.TotalHandlerExecs)
	}
	return snap
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrEventBusClosed = errors.New("event bus is closed")
	ErrHandlerPanic   = errors.New("handler panicked")

	// ErrCascadeTooDeep is returned when handlers keep publishing past MaxDepth.
	ErrCascadeTooDeep = errors.New("event cascade too deep")
)

var _ shared.EventBus = (*InMemoryEventBus)(nil)
