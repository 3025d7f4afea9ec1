package session

import (
	"time"
)

// State is the lifecycle state of a session
type State byte

const (
	StateAbsent    State = iota // No durable record
	StateOpen                   // Record exists and delivery may run
	StateSuspended              // Record exists, live delivery stopped
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateOpen:
		return "open"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Record is the durable session record. The id equals the owning client id.
type Record struct {
	_ struct{} `cbor:",toarray"`

	ID        string
	CreatedAt int64 // Microseconds since the Unix epoch
}

// Created returns the creation time of the session
func (r *Record) Created() time.Time {
	return time.UnixMicro(r.CreatedAt)
}
