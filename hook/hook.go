package hook

import (
	"context"

	"github.com/axmq/ds/iterator"
	"github.com/axmq/ds/topic"
)

// Event represents hook event types
type Event byte

const (
	OnSessionOpen Event = iota
	OnSessionOpened
	OnSessionDropped
	OnSessionSuspend
	OnIteratorAdd
	OnIteratorAdded
	OnIteratorDeleted
)

// String returns the string representation of the event
func (e Event) String() string {
	names := [...]string{
		"OnSessionOpen",
		"OnSessionOpened",
		"OnSessionDropped",
		"OnSessionSuspend",
		"OnIteratorAdd",
		"OnIteratorAdded",
		"OnIteratorDeleted",
	}
	if e < Event(len(names)) {
		return names[e]
	}
	return "Unknown"
}

// Hook observes and gates durable storage lifecycle events. The "before"
// events (OnSessionOpen, OnSessionSuspend, OnIteratorAdd) abort the
// operation when they return an error; the others are notifications.
type Hook interface {
	// ID returns a unique identifier for this hook
	ID() string

	// Provides indicates if the hook handles the given event
	Provides(event Event) bool

	Init(config any) error
	Stop() error

	// OnSessionOpen is called before a session is opened
	OnSessionOpen(ctx context.Context, clientID string) error

	// OnSessionOpened is called after a session is opened or found
	OnSessionOpened(ctx context.Context, clientID string, isNew bool) error

	// OnSessionDropped is called after a session record is deleted
	OnSessionDropped(ctx context.Context, clientID string) error

	// OnSessionSuspend is called while suspending a session, after the
	// record was found and before it is marked suspended
	OnSessionSuspend(ctx context.Context, sessionID string) error

	// OnIteratorAdd is called before an iterator reference is created or fetched
	OnIteratorAdd(ctx context.Context, sessionID string, filter topic.Filter) error

	// OnIteratorAdded is called after AddIterator succeeds
	OnIteratorAdded(ctx context.Context, sessionID string, filter topic.Filter, id iterator.ID, isNew bool) error

	// OnIteratorDeleted is called after an iterator reference is removed
	OnIteratorDeleted(ctx context.Context, sessionID string, filter topic.Filter) error
}
