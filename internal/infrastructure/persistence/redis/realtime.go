package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/pkg/circuitbreaker"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REALTIME PUB/SUB
// Every API replica publishes to realtime:user:{id}; every replica forwards
// what it receives to its local websocket connections.
// ══════════════════════════════════════════════════════════════════════════════

// ChannelPattern matches every per-user channel.
const ChannelPattern = "realtime:user:*"

const channelPrefix = "realtime:user:"

// Publisher publishes realtime messages through Redis behind a circuit breaker.
type Publisher struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewPublisher creates a publisher over the cache's client.
func NewPublisher(cache *Cache, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("realtime_publisher"))
	breaker := circuitbreaker.New("redis-realtime",
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	)
	return &Publisher{client: cache.Client(), breaker: breaker, logger: log}
}

// Publish implements notification.Publisher.
func (p *Publisher) Publish(ctx context.Context, userID string, msg notification.Message) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	return p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.client.Publish(ctx, notification.ChannelFor(userID), data).Err()
	})
}

// EncodeMessage serializes a realtime message.
func EncodeMessage(msg notification.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return data, nil
}

// DecodeMessage parses a channel name and payload back into a user id and message.
func DecodeMessage(channel, payload string) (string, notification.Message, error) {
	userID, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || userID == "" {
		return "", notification.Message{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var msg notification.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", notification.Message{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return userID, msg, nil
}

// Sink receives forwarded messages, usually the websocket hub.
type Sink interface {
	Deliver(userID string, msg notification.Message)
}

// Forwarder subscribes to every user channel and hands messages to a Sink.
type Forwarder struct {
	client *redis.Client
	sink   Sink
	logger *logger.Logger
}

// NewForwarder creates a forwarder.
func NewForwarder(cache *Cache, sink Sink, log *logger.Logger) *Forwarder {
	if log == nil {
		log = logger.Nop()
	}
	return &Forwarder{
		client: cache.Client(),
		sink:   sink,
		logger: log.With(logger.Component("realtime_forwarder")),
	}
}

// Run blocks until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.client.PSubscribe(ctx, ChannelPattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	f.logger.Info("realtime forwarder subscribed", logger.String("pattern", ChannelPattern))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			userID, msg, err := DecodeMessage(m.Channel, m.Payload)
			if err != nil {
				f.logger.Warn("dropping realtime message", logger.Err(err))
				continue
			}
			f.sink.Deliver(userID, msg)
		}
	}
}
