package store

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a Pebble-based implementation of the Store interface.
// Each transaction is an indexed batch committed with pebble.Sync; write
// transactions on one store are serialized.
type PebbleStore struct {
	db     *pebble.DB
	txMu   sync.Mutex
	mu     sync.RWMutex
	closed bool
	prefix []byte
}

// PebbleStoreConfig configures the Pebble store
type PebbleStoreConfig struct {
	Path   string
	Prefix string // Optional prefix for keys (useful when sharing a DB)
	Opts   *pebble.Options
}

// NewPebbleStore opens a Pebble-backed store at config.Path
func NewPebbleStore(config PebbleStoreConfig) (*PebbleStore, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{
			ErrorIfExists: false,
		}
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}

	return &PebbleStore{
		db:     db,
		prefix: []byte(config.Prefix),
	}, nil
}

// NewPebbleStoreFromDB wraps an already opened database; Close closes db
func NewPebbleStoreFromDB(db *pebble.DB, prefix string) *PebbleStore {
	return &PebbleStore{
		db:     db,
		prefix: []byte(prefix),
	}
}

func (p *PebbleStore) makeKey(table string, key []byte) []byte {
	k := makeKey(table, key)
	if len(p.prefix) == 0 {
		return k
	}
	fullKey := make([]byte, len(p.prefix)+len(k))
	copy(fullKey, p.prefix)
	copy(fullKey[len(p.prefix):], k)
	return fullKey
}

// Transaction runs fn against an indexed batch and commits it on success
func (p *PebbleStore) Transaction(ctx context.Context, fn TxnFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.txMu.Lock()
	defer p.txMu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrStoreClosed
	}

	batch := p.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(ctx, &pebbleTxn{store: p, batch: batch}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}

	return batch.Commit(pebble.Sync)
}

// DirtyRead reads key directly from the database
func (p *PebbleStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrStoreClosed
	}

	data, closer, err := p.db.Get(p.makeKey(table, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return cloneBytes(data), nil
}

// Count returns the number of keys in table
func (p *PebbleStore) Count(ctx context.Context, table string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrStoreClosed
	}

	// Keys of table sort between <table>\x00 and <table>\x01
	lower := p.makeKey(table, nil)
	upper := cloneBytes(lower)
	upper[len(upper)-1] = 0x01

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var count int64
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}

	if err := iter.Error(); err != nil {
		return 0, err
	}

	return count, nil
}

// Close closes the store
func (p *PebbleStore) Close() error {
	p.txMu.Lock()
	defer p.txMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStoreClosed
	}

	p.closed = true
	return p.db.Close()
}

type pebbleTxn struct {
	store *PebbleStore
	batch *pebble.Batch
}

func (t *pebbleTxn) Read(table string, key []byte, _ LockMode) ([]byte, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	data, closer, err := t.batch.Get(t.store.makeKey(table, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return cloneBytes(data), nil
}

func (t *pebbleTxn) Write(table string, key, value []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	return t.batch.Set(t.store.makeKey(table, key), value, nil)
}

func (t *pebbleTxn) Delete(table string, key []byte) error {
	if table == "" {
		return ErrEmptyTable
	}
	return t.batch.Delete(t.store.makeKey(table, key), nil)
}
