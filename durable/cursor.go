package durable

import (
	"fmt"

	"github.com/axmq/ds/iterator"
	"github.com/fxamacker/cbor/v2"
)

// MessageID is the identity assigned to a durably stored message
type MessageID []byte

// Value is the log position a message was read from
type Value []byte

// StoreOptions controls how StoreMessages appends
type StoreOptions struct {
	Sync bool // Wait for the append to be durable before returning
}

// Iterator is an opaque cursor over a session's message stream. Its
// position is private to the log implementation and only travels in
// serialized form.
type Iterator struct {
	ID    iterator.ID
	state []byte
}

type iteratorWire struct {
	_ struct{} `cbor:",toarray"`

	ID    []byte
	State []byte
}

// NewIterator returns a cursor positioned at the start of the iterator's stream
func NewIterator(id iterator.ID) Iterator {
	return Iterator{ID: id}
}

// MarshalBinary encodes the cursor, including its private position
func (it Iterator) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(iteratorWire{ID: it.ID, State: it.state})
}

// UnmarshalBinary restores a cursor produced by MarshalBinary
func (it *Iterator) UnmarshalBinary(data []byte) error {
	var w iteratorWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode iterator: %w", err)
	}
	it.ID = w.ID
	it.state = w.State
	return nil
}
