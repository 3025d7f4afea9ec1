package shard

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted   = errors.New("shard already started")
	ErrEmptyShardName   = errors.New("shard name cannot be empty")
	ErrInvalidShardName = errors.New("shard name must be a single path element")
	ErrShardNotRunning  = errors.New("shard not running")
	ErrSupervisorClosed = errors.New("shard supervisor is closed")
	ErrMissingDataDir   = errors.New("shard data directory is required")
)

// AlreadyStartedError is returned by a Supervisor when the shard is already
// running. It matches ErrAlreadyStarted.
type AlreadyStartedError struct {
	Handle Handle
}

func (e *AlreadyStartedError) Error() string {
	if e.Handle == nil {
		return ErrAlreadyStarted.Error()
	}
	return fmt.Sprintf("shard %s already started", e.Handle.Shard())
}

func (e *AlreadyStartedError) Is(target error) bool {
	return target == ErrAlreadyStarted
}

// StartError reports a shard that failed to start. Reason is the
// supervisor's error, unchanged.
type StartError struct {
	Shard  string
	Reason error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start shard %s: %v", e.Shard, e.Reason)
}

func (e *StartError) Unwrap() error {
	return e.Reason
}
