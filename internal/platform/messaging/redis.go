package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	contractsv1 "dispatch/contracts/gen/events/v1"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends envelopes to a Redis stream per topic (XADD).
type RedisPublisher struct {
	rdb          *redis.Client
	streamPrefix string
	maxLen       int64
	logger       *slog.Logger
}

type RedisOption func(*RedisPublisher)

func WithStreamPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) { p.streamPrefix = strings.Trim(prefix, ":") }
}

// WithMaxLen caps each stream approximately; zero keeps it unbounded.
func WithMaxLen(n int64) RedisOption {
	return func(p *RedisPublisher) { p.maxLen = n }
}

func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(p *RedisPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewRedisPublisher(rdb *redis.Client, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		rdb:          rdb,
		streamPrefix: "dispatch:events",
		maxLen:       100000,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisPublisher) Stream(topic string) string {
	if p.streamPrefix == "" {
		return topic
	}
	return p.streamPrefix + ":" + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", event.EventID, err)
	}
	args := &redis.XAddArgs{
		Stream: p.Stream(topic),
		Values: map[string]any{
			"event_id":      event.EventID,
			"event_type":    event.EventType,
			"partition_key": event.PartitionKey,
			"envelope":      payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", args.Stream, err)
	}

	p.logger.Debug("event appended to redis stream",
		"event", "redis_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"stream", args.Stream,
		"stream_id", id,
		"event_id", event.EventID,
	)
	return nil
}
