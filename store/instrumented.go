package store

import (
	"context"
	"errors"
	"time"
)

// Recorder receives the outcome of every store operation
type Recorder interface {
	RecordStoreOperation(operation string, duration time.Duration, err error)
}

// InstrumentedStore wraps a Store and reports each operation to a Recorder
type InstrumentedStore struct {
	store    Store
	recorder Recorder
}

type nopRecorder struct{}

func (nopRecorder) RecordStoreOperation(string, time.Duration, error) {}

// NewInstrumentedStore creates a new instrumented store. A nil recorder
// discards the measurements.
func NewInstrumentedStore(store Store, recorder Recorder) *InstrumentedStore {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &InstrumentedStore{
		store:    store,
		recorder: recorder,
	}
}

// Transaction implements Store.Transaction with metrics collection. A
// transaction aborted by ErrNotFound is a lookup outcome, not a failure.
func (s *InstrumentedStore) Transaction(ctx context.Context, fn TxnFunc) error {
	start := time.Now()

	err := s.store.Transaction(ctx, fn)
	recorded := err
	if errors.Is(recorded, ErrNotFound) {
		recorded = nil
	}
	s.recorder.RecordStoreOperation("transaction", time.Since(start), recorded)

	return err
}

// DirtyRead implements Store.DirtyRead with metrics collection. A missing
// key is a normal lookup outcome and is not reported as an error.
func (s *InstrumentedStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	start := time.Now()

	value, err := s.store.DirtyRead(ctx, table, key)
	recorded := err
	if errors.Is(recorded, ErrNotFound) {
		recorded = nil
	}
	s.recorder.RecordStoreOperation("dirty_read", time.Since(start), recorded)

	return value, err
}

// Close closes the wrapped store
func (s *InstrumentedStore) Close() error {
	return s.store.Close()
}
