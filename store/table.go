package store

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var keyEncMode = mustKeyEncMode()

func mustKeyEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// EncodeKey encodes v with deterministic CBOR so equal values always yield
// equal keys
func EncodeKey(v any) ([]byte, error) {
	return keyEncMode.Marshal(v)
}

// Table is a typed view of one table; values are stored as CBOR
type Table[T any] struct {
	Name string
}

// NewTable returns a typed table view
func NewTable[T any](name string) Table[T] {
	return Table[T]{Name: name}
}

// Read loads and decodes the value stored under key
func (t Table[T]) Read(txn Txn, key []byte, mode LockMode) (T, error) {
	var zero T
	data, err := txn.Read(t.Name, key, mode)
	if err != nil {
		return zero, err
	}
	return t.decode(data)
}

// Write encodes and stores value under key
func (t Table[T]) Write(txn Txn, key []byte, value T) error {
	data, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", t.Name, err)
	}
	return txn.Write(t.Name, key, data)
}

// Delete removes key from the table
func (t Table[T]) Delete(txn Txn, key []byte) error {
	return txn.Delete(t.Name, key)
}

// DirtyRead loads the value stored under key without a transaction
func (t Table[T]) DirtyRead(ctx context.Context, s Store, key []byte) (T, error) {
	var zero T
	data, err := s.DirtyRead(ctx, t.Name, key)
	if err != nil {
		return zero, err
	}
	return t.decode(data)
}

func (t Table[T]) decode(data []byte) (T, error) {
	var value T
	if err := cbor.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s record: %w", t.Name, err)
	}
	return value, nil
}
