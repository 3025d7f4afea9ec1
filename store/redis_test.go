//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return addr
}

func setupRedis(t *testing.T) *redis.Options {
	opts := &redis.Options{
		Addr: getRedisAddr(),
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", opts.Addr, err)
	}

	client.Close()
	return opts
}

func newTestRedisStore(t *testing.T) *RedisStore {
	opts := setupRedis(t)

	s, err := NewRedisStore(RedisStoreConfig{
		Options:    opts,
		Prefix:     fmt.Sprintf("ds-test-%d:", time.Now().UnixNano()),
		MaxRetries: 100,
	})
	require.NoError(t, err)
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s := newTestRedisStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(RedisStoreConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisStore_ConflictExhaustsRetries(t *testing.T) {
	s := newTestRedisStore(t)
	defer s.Close()
	s.maxRetries = 2
	ctx := context.Background()

	// Every attempt modifies the watched key from outside the transaction
	attempts := 0
	err := s.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		attempts++
		if _, err := txn.Read("t", []byte("k"), LockWrite); err != nil && err != ErrNotFound {
			return err
		}
		if err := s.client.Set(ctx, s.makeKey("t", []byte("k")), attempts, 0).Err(); err != nil {
			return err
		}
		return txn.Write("t", []byte("k"), []byte("mine"))
	})
	assert.ErrorIs(t, err, ErrTransactionAborted)
	assert.Equal(t, 2, attempts)
}

func TestRedisStore_Closed(t *testing.T) {
	s := newTestRedisStore(t)
	require.NoError(t, s.Close())

	err := s.Transaction(context.Background(), func(ctx context.Context, txn Txn) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Close(), ErrStoreClosed)
}
