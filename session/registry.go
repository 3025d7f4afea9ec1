package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/store"
)

// TableName is the store table holding session records
const TableName = "session"

// Suspender stops the live replay and delivery processes of a session
type Suspender interface {
	Suspend(ctx context.Context, sessionID string) error
}

// SuspenderFunc adapts a function to the Suspender interface
type SuspenderFunc func(ctx context.Context, sessionID string) error

func (f SuspenderFunc) Suspend(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

// Config configures the session registry
type Config struct {
	Store     store.Store
	Logger    logger.Logger
	Suspender Suspender        // Optional
	Now       func() time.Time // Defaults to time.Now
}

// Registry maps client identities to durable session records. Every
// mutation runs as a single store transaction.
type Registry struct {
	store     store.Store
	table     store.Table[Record]
	logger    logger.Logger
	suspender Suspender
	now       func() time.Time

	mu        sync.RWMutex
	suspended map[string]struct{}

	opened         atomic.Int64
	created        atomic.Int64
	dropped        atomic.Int64
	suspendedCount atomic.Int64
	errCount       atomic.Int64
}

// NewRegistry creates a session registry over the configured store
func NewRegistry(config Config) (*Registry, error) {
	if config.Store == nil {
		return nil, ErrNoStore
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Registry{
		store:     config.Store,
		table:     store.NewTable[Record](TableName),
		logger:    logger.OrNop(config.Logger),
		suspender: config.Suspender,
		now:       config.Now,
		suspended: make(map[string]struct{}),
	}, nil
}

// Open creates the session for clientID if it does not exist. isNew is true
// for exactly one of any number of concurrent opens of the same client.
// Opening a suspended session resumes it.
func (r *Registry) Open(ctx context.Context, clientID string) (isNew bool, sessionID string, err error) {
	if clientID == "" {
		return false, "", ErrEmptyClientID
	}
	key := []byte(clientID)

	isNew, err = store.InTransaction(ctx, r.store, func(ctx context.Context, txn store.Txn) (bool, error) {
		_, err := r.table.Read(txn, key, store.LockWrite)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		return true, r.table.Write(txn, key, Record{
			ID:        clientID,
			CreatedAt: r.now().UnixMicro(),
		})
	})
	if err != nil {
		r.fail("open", clientID, err)
		return false, "", err
	}

	r.opened.Add(1)
	if isNew {
		r.created.Add(1)
	}

	r.mu.Lock()
	_, resumed := r.suspended[clientID]
	delete(r.suspended, clientID)
	r.mu.Unlock()

	r.logger.Debug("session opened", "client_id", clientID, "new", isNew, "resumed", resumed)
	return isNew, clientID, nil
}

// Drop deletes the session record. Dropping an absent session succeeds.
// Iterator references owned by the session are left in place.
func (r *Registry) Drop(ctx context.Context, clientID string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}

	err := r.store.Transaction(ctx, func(ctx context.Context, txn store.Txn) error {
		return r.table.Delete(txn, []byte(clientID))
	})
	if err != nil {
		r.fail("drop", clientID, err)
		return err
	}

	r.mu.Lock()
	delete(r.suspended, clientID)
	r.mu.Unlock()

	r.dropped.Add(1)
	r.logger.Debug("session dropped", "client_id", clientID)
	return nil
}

// Suspend stops live delivery for an existing session without touching its
// durable state. It fails with ErrSessionNotFound when there is no record.
func (r *Registry) Suspend(ctx context.Context, sessionID string) error {
	err := r.store.Transaction(ctx, func(ctx context.Context, txn store.Txn) error {
		_, err := r.table.Read(txn, []byte(sessionID), store.LockRead)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		r.fail("suspend", sessionID, err)
		return err
	}

	if r.suspender != nil {
		if err := r.suspender.Suspend(ctx, sessionID); err != nil {
			r.fail("suspend", sessionID, err)
			return err
		}
	}

	r.mu.Lock()
	r.suspended[sessionID] = struct{}{}
	r.mu.Unlock()

	r.suspendedCount.Add(1)
	r.logger.Debug("session suspended", "session_id", sessionID)
	return nil
}

// State returns the lifecycle state of a session using a dirty read
func (r *Registry) State(ctx context.Context, sessionID string) (State, error) {
	_, err := r.table.DirtyRead(ctx, r.store, []byte(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return StateAbsent, nil
	}
	if err != nil {
		return StateAbsent, err
	}

	r.mu.RLock()
	_, suspended := r.suspended[sessionID]
	r.mu.RUnlock()

	if suspended {
		return StateSuspended, nil
	}
	return StateOpen, nil
}

// Get returns the session record using a dirty read
func (r *Registry) Get(ctx context.Context, sessionID string) (*Record, error) {
	record, err := r.table.DirtyRead(ctx, r.store, []byte(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Stats returns the registry counters
func (r *Registry) Stats() map[string]int64 {
	return map[string]int64{
		"opened":    r.opened.Load(),
		"created":   r.created.Load(),
		"dropped":   r.dropped.Load(),
		"suspended": r.suspendedCount.Load(),
		"errors":    r.errCount.Load(),
	}
}

func (r *Registry) fail(op, id string, err error) {
	r.errCount.Add(1)
	r.logger.Warn("session operation failed", "op", op, "session_id", id, "error", err)
}
