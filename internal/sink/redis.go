package sink

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func init() {
	factory.RegisterWriter("redis", func(def config.WriterDef, log logger.Logger) (model.Writer, error) {
		return NewRedisWriter(def.Redis), nil
	})
}

// RedisWriter publishes payloads as JSON on the pub/sub channels
// <channel>:summary, <channel>:bundle and <channel>:features.
type RedisWriter struct {
	client  *redis.Client
	channel string
}

// NewRedisWriter returns a new RedisWriter with auto-reconnect and retry.
func NewRedisWriter(cfg config.RedisConfig) *RedisWriter {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      5,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 1 * time.Second,
	})
	return &RedisWriter{client: client, channel: cfg.Channel}
}

func (w *RedisWriter) Name() string {
	return "redis"
}

// Write publishes a single payload.
func (w *RedisWriter) Write(ctx context.Context, payload interface{}) error {
	kind, err := kindOf("RedisWriter", payload)
	if err != nil {
		return err
	}
	data, err := encodeJSON(payload)
	if err != nil {
		return err
	}

	channel := w.channel + ":" + kind
	if err := w.client.Publish(ctx, channel, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel '%s': %w", channel, err)
	}
	return nil
}

func (w *RedisWriter) Close() error {
	return w.client.Close()
}
