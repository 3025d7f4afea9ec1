package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of the Store interface.
// Transactions are optimistic: every key read is WATCHed and writes are
// applied with MULTI/EXEC; a conflicting commit is retried with backoff.
type RedisStore struct {
	client     *redis.Client
	mu         sync.RWMutex
	closed     bool
	prefix     string
	maxRetries uint
	backoff    func() backoff.BackOff
}

// RedisStoreConfig configures the Redis store
type RedisStoreConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string // Optional prefix for keys (e.g., "ds:")
	MaxRetries uint   // Commit attempts on conflict (0 = 10)
	Options    *redis.Options
}

// NewRedisStore creates a new Redis-based store
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	var client *redis.Client

	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "ds:"
	}

	maxRetries := config.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}

	return &RedisStore{
		client:     client,
		prefix:     prefix,
		maxRetries: maxRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Millisecond
			b.MaxInterval = 200 * time.Millisecond
			return b
		},
	}, nil
}

// makeKey creates a Redis key for a table entry
func (r *RedisStore) makeKey(table string, key []byte) string {
	return r.prefix + table + ":" + string(key)
}

// Transaction runs fn optimistically, retrying when a watched key changed
// before commit
func (r *RedisStore) Transaction(ctx context.Context, fn TxnFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			txn := &redisTxn{
				ctx:    ctx,
				store:  r,
				tx:     tx,
				writes: make(map[string][]byte),
			}
			if fnErr = fn(ctx, txn); fnErr != nil {
				return fnErr
			}
			return txn.commit()
		})
		switch {
		case err == nil:
			return struct{}{}, nil
		case fnErr != nil:
			return struct{}{}, backoff.Permanent(fnErr)
		case errors.Is(err, redis.TxFailedErr):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	},
		backoff.WithBackOff(r.backoff()),
		backoff.WithMaxTries(r.maxRetries),
	)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %w", ErrTransactionAborted, err)
	}
	return err
}

// DirtyRead reads key with a plain GET
func (r *RedisStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := r.client.Get(ctx, r.makeKey(table, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read value: %w", err)
	}
	return data, nil
}

// Close closes the store
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	r.closed = true
	return r.client.Close()
}

// redisTxn buffers writes until EXEC; a nil value marks a delete
type redisTxn struct {
	ctx    context.Context
	store  *RedisStore
	tx     *redis.Tx
	writes map[string][]byte
}

func (t *redisTxn) Read(table string, key []byte, _ LockMode) ([]byte, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	fullKey := t.store.makeKey(table, key)
	if value, ok := t.writes[fullKey]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return cloneBytes(value), nil
	}

	if err := t.tx.Watch(t.ctx, fullKey).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch key: %w", err)
	}

	data, err := t.tx.Get(t.ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read value: %w", err)
	}
	return data, nil
}

func (t *redisTxn) Write(table string, key, value []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[t.store.makeKey(table, key)] = cloneBytes(value)
	return nil
}

func (t *redisTxn) Delete(table string, key []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	t.writes[t.store.makeKey(table, key)] = nil
	return nil
}

func (t *redisTxn) commit() error {
	if len(t.writes) == 0 {
		return nil
	}

	_, err := t.tx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for key, value := range t.writes {
			if value == nil {
				pipe.Del(t.ctx, key)
				continue
			}
			pipe.Set(t.ctx, key, value, 0)
		}
		return nil
	})
	return err
}
