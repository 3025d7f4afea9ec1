package shard

import (
	"context"
	"errors"

	"github.com/axmq/ds/pkg/logger"
	"github.com/cockroachdb/pebble"
)

// Handle refers to a running shard
type Handle interface {
	Shard() string
}

// Options configures how a shard's storage is started
type Options struct {
	Dir    string          // Parent directory; each shard lives in Dir/<name>
	Pebble *pebble.Options // Optional storage engine tuning
}

// Supervisor starts shard storage processes. A shard that is already running
// is reported with *AlreadyStartedError.
type Supervisor interface {
	Start(ctx context.Context, name string, opts Options) (Handle, error)
}

// Manager ensures named shards are running under a supervisor. It holds no
// state of its own.
type Manager struct {
	supervisor Supervisor
	logger     logger.Logger
}

// NewManager creates a shard lifecycle manager
func NewManager(supervisor Supervisor, log logger.Logger) *Manager {
	return &Manager{
		supervisor: supervisor,
		logger:     logger.OrNop(log),
	}
}

// EnsureShard starts the named shard, treating an already running shard as
// success. Any other failure is returned as *StartError.
func (m *Manager) EnsureShard(ctx context.Context, name string, opts Options) error {
	if name == "" {
		return ErrEmptyShardName
	}

	_, err := m.supervisor.Start(ctx, name, opts)
	switch {
	case err == nil:
		m.logger.Info("shard started", "shard", name)
		return nil
	case errors.Is(err, ErrAlreadyStarted):
		m.logger.Debug("shard already running", "shard", name)
		return nil
	default:
		m.logger.Error("shard failed to start", "shard", name, "error", err)
		return &StartError{Shard: name, Reason: err}
	}
}
