package store

import (
	"context"
)

// LockMode is the lock a transactional read takes on a key
type LockMode byte

const (
	LockRead  LockMode = iota // Shared read
	LockWrite                 // Read with intent to write
)

// String returns the lock mode name
func (m LockMode) String() string {
	switch m {
	case LockRead:
		return "read"
	case LockWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Txn is the view of the store available inside a transaction. Keys are
// scoped by table; a transaction observes its own writes.
type Txn interface {
	// Read returns the value stored under key, or ErrNotFound
	Read(table string, key []byte, mode LockMode) ([]byte, error)

	// Write stores value under key
	Write(table string, key, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(table string, key []byte) error
}

// TxnFunc is the body of a transaction. It may run more than once when a
// backend retries on conflict, so it must not leak partial results.
type TxnFunc func(ctx context.Context, txn Txn) error

// Store is a transactional key-value store. Transaction commits when fn
// returns nil and aborts otherwise, so either all writes of fn become
// visible or none do.
type Store interface {
	// Transaction runs fn in a serializable transaction
	Transaction(ctx context.Context, fn TxnFunc) error

	// DirtyRead reads key without a transaction; the value may be stale
	DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error)

	// Close closes the store
	Close() error
}

// InTransaction runs fn in a transaction and returns its result once committed
func InTransaction[T any](ctx context.Context, s Store, fn func(ctx context.Context, txn Txn) (T, error)) (T, error) {
	var result T
	err := s.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		var err error
		result, err = fn(ctx, txn)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// makeKey joins a table and a key into the flat key space used by the backends
func makeKey(table string, key []byte) []byte {
	fullKey := make([]byte, len(table)+1+len(key))
	copy(fullKey, table)
	fullKey[len(table)] = 0
	copy(fullKey[len(table)+1:], key)
	return fullKey
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
