// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache adapts a go-redis client to the [SharedCache] contract.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Publish(ctx context.Context, channel, payload string) error {
	return c.client.Publish(ctx, channel, payload).Err()
}

// Listen delivers messages published on channel to handler until ctx is
// cancelled. Reconnects are handled inside go-redis; a closed message
// channel ends the loop.
func (c *RedisCache) Listen(ctx context.Context, channel string, handler func(payload string)) {
	pubsub := c.client.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.logger.Warn("pubsub_close_failed", slog.Any("error", err))
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			handler(msg.Payload)
		}
	}
}
