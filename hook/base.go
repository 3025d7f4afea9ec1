package hook

import (
	"context"

	"github.com/axmq/ds/iterator"
	"github.com/axmq/ds/topic"
)

// Base provides a default no-op implementation of the Hook interface.
// Embed it and override only the methods you need.
type Base struct {
	id string
}

// NewHookBase creates a new base hook with the given ID
func NewHookBase(id string) *Base {
	return &Base{id: id}
}

func (h *Base) ID() string {
	return h.id
}

func (h *Base) Provides(event Event) bool {
	return false
}

func (h *Base) Init(config any) error {
	return nil
}

func (h *Base) Stop() error {
	return nil
}

func (h *Base) OnSessionOpen(ctx context.Context, clientID string) error {
	return nil
}

func (h *Base) OnSessionOpened(ctx context.Context, clientID string, isNew bool) error {
	return nil
}

func (h *Base) OnSessionDropped(ctx context.Context, clientID string) error {
	return nil
}

func (h *Base) OnSessionSuspend(ctx context.Context, sessionID string) error {
	return nil
}

func (h *Base) OnIteratorAdd(ctx context.Context, sessionID string, filter topic.Filter) error {
	return nil
}

func (h *Base) OnIteratorAdded(ctx context.Context, sessionID string, filter topic.Filter, id iterator.ID, isNew bool) error {
	return nil
}

func (h *Base) OnIteratorDeleted(ctx context.Context, sessionID string, filter topic.Filter) error {
	return nil
}
