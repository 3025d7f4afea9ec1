package iterator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/store"
	"github.com/axmq/ds/topic"
)

// TableName is the store table holding iterator references
const TableName = "iterator"

// Ref is the durable reference from a (session, filter) pair to its iterator
type Ref struct {
	_ struct{} `cbor:",toarray"`

	ID        ID
	StartTime int64 // Logical microseconds; earliest message the iterator may observe
}

// refKey is the composite key of a Ref
type refKey struct {
	_ struct{} `cbor:",toarray"`

	SessionID string
	Group     string
	Segments  []keySegment
}

// keySegment keeps the segment kind, so a literal "+" never collides with
// the single-level wildcard
type keySegment struct {
	_ struct{} `cbor:",toarray"`

	Kind    topic.Kind
	Literal string
}

// RefKey returns the encoded composite key for a session and filter
func RefKey(sessionID string, filter topic.Filter) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if len(filter.Segments) == 0 {
		return nil, ErrEmptyFilter
	}
	segments := make([]keySegment, len(filter.Segments))
	for i, seg := range filter.Segments {
		segments[i] = keySegment{Kind: seg.Kind, Literal: seg.Literal}
	}
	key, err := store.EncodeKey(refKey{
		SessionID: sessionID,
		Group:     filter.Group,
		Segments:  segments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode iterator key: %w", err)
	}
	return key, nil
}

// Config configures the iterator registry
type Config struct {
	Store       store.Store
	Logger      logger.Logger
	Clock       Clock       // Defaults to a SystemClock
	IDGenerator IDGenerator // Defaults to random UUIDs
}

// Registry maps (session, topic filter) pairs to durable iterator identities
type Registry struct {
	store  store.Store
	table  store.Table[Ref]
	logger logger.Logger
	clock  Clock
	ids    IDGenerator

	added        atomic.Int64
	created      atomic.Int64
	lookups      atomic.Int64
	lookupMisses atomic.Int64
	deleted      atomic.Int64
	errCount     atomic.Int64
}

// NewRegistry creates an iterator registry over the configured store
func NewRegistry(config Config) (*Registry, error) {
	if config.Store == nil {
		return nil, ErrNoStore
	}
	if config.Clock == nil {
		config.Clock = NewSystemClock()
	}
	if config.IDGenerator == nil {
		config.IDGenerator = UUIDGenerator{}
	}

	return &Registry{
		store:  config.Store,
		table:  store.NewTable[Ref](TableName),
		logger: logger.OrNop(config.Logger),
		clock:  config.Clock,
		ids:    config.IDGenerator,
	}, nil
}

// AddIterator returns the iterator for a session subscription, creating it
// on first use. An existing reference is returned unchanged with isNew false,
// so repeated subscriptions keep their replay starting point.
func (r *Registry) AddIterator(ctx context.Context, sessionID string, filter topic.Filter) (id ID, startTime int64, isNew bool, err error) {
	key, err := RefKey(sessionID, filter)
	if err != nil {
		return nil, 0, false, err
	}

	type result struct {
		ref   Ref
		isNew bool
	}
	res, err := store.InTransaction(ctx, r.store, func(ctx context.Context, txn store.Txn) (result, error) {
		ref, err := r.table.Read(txn, key, store.LockWrite)
		if err == nil {
			return result{ref: ref}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return result{}, err
		}

		suffix, err := r.ids.NewSuffix()
		if err != nil {
			return result{}, err
		}
		ref = Ref{
			ID:        NewID(sessionID, suffix),
			StartTime: r.clock.NowMicros(),
		}
		if err := r.table.Write(txn, key, ref); err != nil {
			return result{}, err
		}
		return result{ref: ref, isNew: true}, nil
	})
	if err != nil {
		r.fail("add", sessionID, filter, err)
		return nil, 0, false, err
	}

	r.added.Add(1)
	if res.isNew {
		r.created.Add(1)
		r.logger.Debug("iterator created", "session_id", sessionID, "filter", filter.String(),
			"iterator_id", res.ref.ID.String(), "start_time", res.ref.StartTime)
	}
	return res.ref.ID, res.ref.StartTime, res.isNew, nil
}

// Lookup returns the reference for a session subscription using a dirty
// read; the result may be stale under concurrent modification
func (r *Registry) Lookup(ctx context.Context, sessionID string, filter topic.Filter) (Ref, error) {
	key, err := RefKey(sessionID, filter)
	if err != nil {
		return Ref{}, err
	}

	r.lookups.Add(1)
	ref, err := r.table.DirtyRead(ctx, r.store, key)
	if errors.Is(err, store.ErrNotFound) {
		r.lookupMisses.Add(1)
		return Ref{}, ErrNotFound
	}
	if err != nil {
		r.fail("lookup", sessionID, filter, err)
		return Ref{}, err
	}
	return ref, nil
}

// GetIteratorID returns the iterator id for a session subscription using a
// dirty read
func (r *Registry) GetIteratorID(ctx context.Context, sessionID string, filter topic.Filter) (ID, error) {
	ref, err := r.Lookup(ctx, sessionID, filter)
	if err != nil {
		return nil, err
	}
	return ref.ID, nil
}

// DelIterator deletes the reference for a session subscription. Deleting an
// absent reference succeeds.
func (r *Registry) DelIterator(ctx context.Context, sessionID string, filter topic.Filter) error {
	key, err := RefKey(sessionID, filter)
	if err != nil {
		return err
	}

	err = r.store.Transaction(ctx, func(ctx context.Context, txn store.Txn) error {
		return r.table.Delete(txn, key)
	})
	if err != nil {
		r.fail("delete", sessionID, filter, err)
		return err
	}

	r.deleted.Add(1)
	r.logger.Debug("iterator deleted", "session_id", sessionID, "filter", filter.String())
	return nil
}

// Stats returns the registry counters
func (r *Registry) Stats() map[string]int64 {
	return map[string]int64{
		"added":         r.added.Load(),
		"created":       r.created.Load(),
		"lookups":       r.lookups.Load(),
		"lookup_misses": r.lookupMisses.Load(),
		"deleted":       r.deleted.Load(),
		"errors":        r.errCount.Load(),
	}
}

func (r *Registry) fail(op, sessionID string, filter topic.Filter, err error) {
	r.errCount.Add(1)
	r.logger.Warn("iterator operation failed", "op", op, "session_id", sessionID,
		"filter", filter.String(), "error", err)
}
