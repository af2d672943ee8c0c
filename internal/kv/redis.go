// Package kv resolves plates against the registry hashes kept in Redis.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lpr-service/internal/config"
)

const (
	NamespaceRenavam = "renavam"
	NamespaceBrand   = "brand"
	NamespaceAlert   = "alert"
)

type RedisLookup struct {
	client *redis.Client
}

func NewRedisLookup(client *redis.Client) *RedisLookup {
	return &RedisLookup{client: client}
}

// Connect creates a client and checks it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Lookup reads one field of a namespace hash. A missing field is reported
// with found=false and no error.
func (l *RedisLookup) Lookup(ctx context.Context, namespace, key string) (string, bool, error) {
	value, err := l.client.HGet(ctx, namespace, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", namespace, key, err)
	}
	return value, true, nil
}
