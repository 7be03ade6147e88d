package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedis_FailsOpen(t *testing.T) {
	l := NewRedis(unreachableClient(t), 1, time.Minute)

	ok, err := l.Allow(context.Background(), "a@b.c")
	assert.True(t, ok)
	assert.ErrorContains(t, err, "redis limiter")
}

func TestRedis_ResetError(t *testing.T) {
	l := NewRedis(unreachableClient(t), 1, time.Minute)

	err := l.Reset(context.Background(), "a@b.c")
	assert.ErrorContains(t, err, "redis limiter")
}

func TestRedis_ImplementsLimiter(t *testing.T) {
	var _ Limiter = NewRedis(unreachableClient(t), 1, time.Minute)
	var _ Limiter = NewMemory(1, time.Minute)
}
