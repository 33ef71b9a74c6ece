package messaging

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware turns a handler panic into ErrHandlerPanic so the
// cascade fails instead of crashing the process.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(ctx context.Context, event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panic recovered",
						logger.EventType(string(event.EventType())),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(ctx, event)
		}
	}
}

// LoggingMiddleware logs handler execution.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(ctx context.Context, event shared.Event) error {
			start := time.Now()
			err := next(ctx, event)
			duration := time.Since(start)

			if err != nil {
				log.Error("handler failed",
					logger.EventType(string(event.EventType())),
					logger.String("aggregate_id", event.AggregateID()),
					logger.Latency(duration),
					logger.Err(err),
				)
			} else {
				log.Debug("handler completed",
					logger.EventType(string(event.EventType())),
					logger.String("aggregate_id", event.AggregateID()),
					logger.Latency(duration),
				)
			}

			return err
		}
	}
}
