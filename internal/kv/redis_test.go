package kv

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpr-service/internal/config"
)

func TestRedisLookup_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, config.RedisConfig{Addr: "localhost:6379", DB: 15})
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	defer client.Close()

	const hash = "lpr-test-renavam"
	t.Cleanup(func() { client.Del(context.Background(), hash) })

	require.NoError(t, client.HSet(ctx, hash, "ABC1234", `{"makeAndModel":"150123"}`).Err())

	lookup := NewRedisLookup(client)

	value, found, err := lookup.Lookup(ctx, hash, "ABC1234")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"makeAndModel":"150123"}`, value)

	_, found, err = lookup.Lookup(ctx, hash, "ZZZ0000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisLookup_BackendError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	_, found, err := NewRedisLookup(client).Lookup(context.Background(), NamespaceAlert, "ABC1234")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "hget alert ABC1234")
}
