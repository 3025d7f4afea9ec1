package durable

import (
	"context"
	"fmt"

	"github.com/axmq/ds/hook"
	"github.com/axmq/ds/iterator"
	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/session"
	"github.com/axmq/ds/shard"
	"github.com/axmq/ds/store"
	"github.com/axmq/ds/topic"
	"github.com/axmq/ds/types/message"
)

// Config configures the durable storage facade
type Config struct {
	Store       store.Store
	Supervisor  shard.Supervisor // Optional; required by EnsureShard
	Logger      logger.Logger
	Suspender   session.Suspender
	Hooks       *hook.Manager // Optional lifecycle hooks
	Clock       iterator.Clock
	IDGenerator iterator.IDGenerator
}

// DS is the durable storage entry point used by the broker's connection
// layer: session bookkeeping on connect and disconnect, iterator references
// on subscribe and unsubscribe.
type DS struct {
	sessions  *session.Registry
	iterators *iterator.Registry
	shards    *shard.Manager
	hooks     *hook.Manager
	logger    logger.Logger
}

// New composes the session registry, the iterator registry and the shard
// manager over one store
func New(config Config) (*DS, error) {
	log := logger.OrNop(config.Logger)
	hooks := config.Hooks
	if hooks == nil {
		hooks = hook.NewManager(log)
	}

	sessions, err := session.NewRegistry(session.Config{
		Store:     config.Store,
		Logger:    log,
		Suspender: suspendChain(config.Suspender, hooks),
	})
	if err != nil {
		return nil, err
	}

	iterators, err := iterator.NewRegistry(iterator.Config{
		Store:       config.Store,
		Logger:      log,
		Clock:       config.Clock,
		IDGenerator: config.IDGenerator,
	})
	if err != nil {
		return nil, err
	}

	ds := &DS{
		sessions:  sessions,
		iterators: iterators,
		hooks:     hooks,
		logger:    log,
	}
	if config.Supervisor != nil {
		ds.shards = shard.NewManager(config.Supervisor, log)
	}
	return ds, nil
}

// suspendChain runs the configured suspender, then the suspend hooks
func suspendChain(s session.Suspender, hooks *hook.Manager) session.Suspender {
	if s == nil {
		return hooks
	}
	return session.SuspenderFunc(func(ctx context.Context, sessionID string) error {
		if err := s.Suspend(ctx, sessionID); err != nil {
			return err
		}
		return hooks.Suspend(ctx, sessionID)
	})
}

// Hooks returns the lifecycle hook manager
func (d *DS) Hooks() *hook.Manager { return d.hooks }

// Sessions returns the session registry
func (d *DS) Sessions() *session.Registry { return d.sessions }

// Iterators returns the iterator reference registry
func (d *DS) Iterators() *iterator.Registry { return d.iterators }

// OpenSession creates the client's session if absent
func (d *DS) OpenSession(ctx context.Context, clientID string) (isNew bool, sessionID string, err error) {
	if err := d.hooks.OnSessionOpen(ctx, clientID); err != nil {
		return false, "", err
	}
	isNew, sessionID, err = d.sessions.Open(ctx, clientID)
	if err != nil {
		return false, "", err
	}
	d.hooks.OnSessionOpened(ctx, clientID, isNew)
	return isNew, sessionID, nil
}

// DropSession deletes the client's session; its iterator references remain
func (d *DS) DropSession(ctx context.Context, clientID string) error {
	if err := d.sessions.Drop(ctx, clientID); err != nil {
		return err
	}
	d.hooks.OnSessionDropped(ctx, clientID)
	return nil
}

// SuspendSession stops live delivery for a session, keeping durable state
func (d *DS) SuspendSession(ctx context.Context, sessionID string) error {
	return d.sessions.Suspend(ctx, sessionID)
}

// AddIterator returns the iterator for a subscription, creating it on first use
func (d *DS) AddIterator(ctx context.Context, sessionID string, filter topic.Filter) (iterator.ID, int64, bool, error) {
	if err := d.hooks.OnIteratorAdd(ctx, sessionID, filter); err != nil {
		return nil, 0, false, err
	}
	id, startTime, isNew, err := d.iterators.AddIterator(ctx, sessionID, filter)
	if err != nil {
		return nil, 0, false, err
	}
	d.hooks.OnIteratorAdded(ctx, sessionID, filter, id, isNew)
	return id, startTime, isNew, nil
}

// GetIteratorID looks up a subscription's iterator with a dirty read
func (d *DS) GetIteratorID(ctx context.Context, sessionID string, filter topic.Filter) (iterator.ID, error) {
	return d.iterators.GetIteratorID(ctx, sessionID, filter)
}

// DelIterator removes a subscription's iterator reference
func (d *DS) DelIterator(ctx context.Context, sessionID string, filter topic.Filter) error {
	if err := d.iterators.DelIterator(ctx, sessionID, filter); err != nil {
		return err
	}
	d.hooks.OnIteratorDeleted(ctx, sessionID, filter)
	return nil
}

// EnsureShard starts the named shard if it is not already running
func (d *DS) EnsureShard(ctx context.Context, name string, opts shard.Options) error {
	if d.shards == nil {
		return ErrNoSupervisor
	}
	return d.shards.EnsureShard(ctx, name, opts)
}

// StoreMessages appends messages to the durable log and returns their ids
// in order. Messages are validated first; the append itself is not
// implemented.
func (d *DS) StoreMessages(ctx context.Context, msgs []*message.Message, opts StoreOptions) ([]MessageID, error) {
	for i, msg := range msgs {
		if msg == nil {
			return nil, fmt.Errorf("message %d is nil", i)
		}
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil, ErrNotImplemented
}

// MessageStats reports durable log statistics
func (d *DS) MessageStats(ctx context.Context) (map[string]int64, error) {
	return nil, ErrNotImplemented
}

// UpdateIterator persists the last acknowledged cursor position
func (d *DS) UpdateIterator(ctx context.Context, it Iterator) error {
	return ErrNotImplemented
}

// NextIterator reads the message after the cursor and returns the advanced
// cursor, or ErrEndOfStream once the stream is exhausted
func (d *DS) NextIterator(ctx context.Context, it Iterator) (Value, *message.Message, Iterator, error) {
	return nil, nil, it, ErrNotImplemented
}

// IteratorStats reports durable iterator statistics
func (d *DS) IteratorStats(ctx context.Context) (map[string]int64, error) {
	return nil, ErrNotImplemented
}

// Stats returns the counters of both registries, prefixed with "session."
// and "iterator."
func (d *DS) Stats() map[string]int64 {
	sessionStats := d.sessions.Stats()
	iteratorStats := d.iterators.Stats()

	stats := make(map[string]int64, len(sessionStats)+len(iteratorStats))
	for k, v := range sessionStats {
		stats["session."+k] = v
	}
	for k, v := range iteratorStats {
		stats["iterator."+k] = v
	}
	return stats
}
