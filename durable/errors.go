package durable

import "errors"

var (
	// ErrNotImplemented marks operations whose storage engine does not exist
	// yet. Callers must treat it as a hard failure and not retry.
	ErrNotImplemented = errors.New("durable: operation not implemented")

	// ErrEndOfStream is returned by NextIterator once a cursor is exhausted
	ErrEndOfStream = errors.New("durable: end of stream")

	ErrNoSupervisor = errors.New("durable: no shard supervisor configured")
)
