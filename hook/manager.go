package hook

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/axmq/ds/iterator"
	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/topic"
)

// Manager manages the registration and invocation of hooks. Dispatch reads
// an immutable snapshot, so hooks may be added or removed concurrently.
type Manager struct {
	mu       sync.Mutex
	hooksPtr atomic.Pointer[[]Hook]
	index    map[string]int
	logger   logger.Logger
}

// NewManager creates a new hooks manager
func NewManager(log logger.Logger) *Manager {
	m := &Manager{
		index:  make(map[string]int),
		logger: logger.OrNop(log),
	}
	hooks := make([]Hook, 0)
	m.hooksPtr.Store(&hooks)
	return m
}

// Add initializes the hook with config and registers it.
// Returns an error if a hook with the same ID already exists.
func (m *Manager) Add(hook Hook, config any) error {
	if hook == nil || hook.ID() == "" {
		return ErrEmptyHookID
	}
	id := hook.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[id]; exists {
		return ErrHookAlreadyExists
	}
	if err := hook.Init(config); err != nil {
		return err
	}

	oldHooks := *m.hooksPtr.Load()
	newHooks := make([]Hook, len(oldHooks)+1)
	copy(newHooks, oldHooks)
	newHooks[len(oldHooks)] = hook

	m.index[id] = len(oldHooks)
	m.hooksPtr.Store(&newHooks)
	return nil
}

// Remove stops and unregisters a hook by its ID
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, exists := m.index[id]
	if !exists {
		return ErrHookNotFound
	}

	oldHooks := *m.hooksPtr.Load()
	removed := oldHooks[idx]
	newHooks := make([]Hook, 0, len(oldHooks)-1)
	newHooks = append(newHooks, oldHooks[:idx]...)
	newHooks = append(newHooks, oldHooks[idx+1:]...)

	delete(m.index, id)
	for i := idx; i < len(newHooks); i++ {
		m.index[newHooks[i].ID()] = i
	}
	m.hooksPtr.Store(&newHooks)

	return removed.Stop()
}

// Get retrieves a hook by its ID
func (m *Manager) Get(id string) (Hook, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, exists := m.index[id]
	if !exists {
		return nil, false
	}
	return (*m.hooksPtr.Load())[idx], true
}

// Count returns the number of registered hooks
func (m *Manager) Count() int {
	return len(*m.hooksPtr.Load())
}

// Clear stops and removes all hooks
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range *m.hooksPtr.Load() {
		if err := h.Stop(); err != nil {
			m.logger.Warn("failed to stop hook", "hook", h.ID(), "error", err)
		}
	}

	newHooks := make([]Hook, 0)
	m.hooksPtr.Store(&newHooks)
	m.index = make(map[string]int)
}

func (m *Manager) notify(event Event, fn func(Hook) error) {
	for _, hook := range *m.hooksPtr.Load() {
		if !hook.Provides(event) {
			continue
		}
		if err := fn(hook); err != nil {
			m.logger.Warn("hook failed", "hook", hook.ID(), "event", event.String(), "error", err)
		}
	}
}

func (m *Manager) gate(event Event, fn func(Hook) error) error {
	for _, hook := range *m.hooksPtr.Load() {
		if !hook.Provides(event) {
			continue
		}
		if err := fn(hook); err != nil {
			return err
		}
	}
	return nil
}

// OnSessionOpen invokes all OnSessionOpen hooks, stopping at the first error
func (m *Manager) OnSessionOpen(ctx context.Context, clientID string) error {
	return m.gate(OnSessionOpen, func(h Hook) error {
		return h.OnSessionOpen(ctx, clientID)
	})
}

// OnSessionOpened invokes all OnSessionOpened hooks
func (m *Manager) OnSessionOpened(ctx context.Context, clientID string, isNew bool) {
	m.notify(OnSessionOpened, func(h Hook) error {
		return h.OnSessionOpened(ctx, clientID, isNew)
	})
}

// OnSessionDropped invokes all OnSessionDropped hooks
func (m *Manager) OnSessionDropped(ctx context.Context, clientID string) {
	m.notify(OnSessionDropped, func(h Hook) error {
		return h.OnSessionDropped(ctx, clientID)
	})
}

// Suspend invokes all OnSessionSuspend hooks, stopping at the first error.
// It satisfies session.Suspender.
func (m *Manager) Suspend(ctx context.Context, sessionID string) error {
	return m.gate(OnSessionSuspend, func(h Hook) error {
		return h.OnSessionSuspend(ctx, sessionID)
	})
}

// OnIteratorAdd invokes all OnIteratorAdd hooks, stopping at the first error
func (m *Manager) OnIteratorAdd(ctx context.Context, sessionID string, filter topic.Filter) error {
	return m.gate(OnIteratorAdd, func(h Hook) error {
		return h.OnIteratorAdd(ctx, sessionID, filter)
	})
}

// OnIteratorAdded invokes all OnIteratorAdded hooks
func (m *Manager) OnIteratorAdded(ctx context.Context, sessionID string, filter topic.Filter, id iterator.ID, isNew bool) {
	m.notify(OnIteratorAdded, func(h Hook) error {
		return h.OnIteratorAdded(ctx, sessionID, filter, id, isNew)
	})
}

// OnIteratorDeleted invokes all OnIteratorDeleted hooks
func (m *Manager) OnIteratorDeleted(ctx context.Context, sessionID string, filter topic.Filter) {
	m.notify(OnIteratorDeleted, func(h Hook) error {
		return h.OnIteratorDeleted(ctx, sessionID, filter)
	})
}
