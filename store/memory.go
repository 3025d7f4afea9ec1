package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Transactions are serialized; their writes are buffered and applied on commit.
type MemoryStore struct {
	txMu   sync.Mutex   // serializes transactions
	mu     sync.RWMutex // guards data and closed
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// memoryTxn buffers writes; a nil value marks a delete
type memoryTxn struct {
	store  *MemoryStore
	writes map[string][]byte
}

// Transaction runs fn in a serializable transaction
func (m *MemoryStore) Transaction(ctx context.Context, fn TxnFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	if m.isClosed() {
		return ErrStoreClosed
	}

	txn := &memoryTxn{
		store:  m,
		writes: make(map[string][]byte),
	}
	if err := fn(ctx, txn); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	for key, value := range txn.writes {
		if value == nil {
			delete(m.data, key)
			continue
		}
		m.data[key] = value
	}
	return nil
}

// DirtyRead reads key outside of any transaction
func (m *MemoryStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	value, ok := m.data[string(makeKey(table, key))]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(value), nil
}

// Len returns the number of keys stored in table
func (m *MemoryStore) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := string(makeKey(table, nil))
	n := 0
	for key := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Close closes the store, waiting for an in-flight transaction to finish
func (m *MemoryStore) Close() error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.closed = true
	m.data = nil
	return nil
}

func (m *MemoryStore) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (t *memoryTxn) Read(table string, key []byte, _ LockMode) ([]byte, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	fullKey := string(makeKey(table, key))
	if value, ok := t.writes[fullKey]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return cloneBytes(value), nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	value, ok := t.store.data[fullKey]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(value), nil
}

func (t *memoryTxn) Write(table string, key, value []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[string(makeKey(table, key))] = cloneBytes(value)
	return nil
}

func (t *memoryTxn) Delete(table string, key []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	t.writes[string(makeKey(table, key))] = nil
	return nil
}
