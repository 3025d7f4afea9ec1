package iterator

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// SuffixLen is the length of the unique suffix of every iterator id
const SuffixLen = 16

// ID is a durable iterator identity: the owning session id followed by a
// 16 byte unique suffix
type ID []byte

// NewID joins a session id and a unique suffix
func NewID(sessionID string, suffix [SuffixLen]byte) ID {
	id := make(ID, 0, len(sessionID)+SuffixLen)
	id = append(id, sessionID...)
	return append(id, suffix[:]...)
}

// SessionID returns the session that owns the iterator
func (id ID) SessionID() string {
	if len(id) < SuffixLen {
		return ""
	}
	return string(id[:len(id)-SuffixLen])
}

// Suffix returns the unique part of the id
func (id ID) Suffix() []byte {
	if len(id) < SuffixLen {
		return nil
	}
	return id[len(id)-SuffixLen:]
}

// HasSession reports whether the iterator belongs to sessionID
func (id ID) HasSession(sessionID string) bool {
	return len(id) == len(sessionID)+SuffixLen && bytes.HasPrefix(id, []byte(sessionID))
}

// Equal reports whether two ids are identical
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

// String renders the id as "<session>/<uuid>"
func (id ID) String() string {
	if len(id) < SuffixLen {
		return fmt.Sprintf("invalid(%x)", []byte(id))
	}
	var u uuid.UUID
	copy(u[:], id.Suffix())
	return id.SessionID() + "/" + u.String()
}

// IDGenerator produces globally unique iterator id suffixes
type IDGenerator interface {
	NewSuffix() ([SuffixLen]byte, error)
}

// UUIDGenerator generates suffixes from random (v4) or time-ordered (v7) UUIDs
type UUIDGenerator struct {
	TimeOrdered bool
}

func (g UUIDGenerator) NewSuffix() ([SuffixLen]byte, error) {
	var (
		u   uuid.UUID
		err error
	)
	if g.TimeOrdered {
		u, err = uuid.NewV7()
	} else {
		u, err = uuid.NewRandom()
	}
	if err != nil {
		return [SuffixLen]byte{}, fmt.Errorf("failed to generate iterator id: %w", err)
	}
	return u, nil
}
