package shard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle string

func (h stubHandle) Shard() string { return string(h) }

// stubSupervisor records starts and returns a scripted error
type stubSupervisor struct {
	mu     sync.Mutex
	starts []string
	err    error
}

func (s *stubSupervisor) Start(ctx context.Context, name string, opts Options) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, name)
	if s.err != nil {
		return nil, s.err
	}
	return stubHandle(name), nil
}

func TestManager_EnsureShard(t *testing.T) {
	diskFull := errors.New("no space left on device")

	tests := []struct {
		name       string
		startErr   error
		wantErr    bool
		wantReason error
	}{
		{name: "started", startErr: nil},
		{name: "already started", startErr: &AlreadyStartedError{Handle: stubHandle("s1")}},
		{name: "already started sentinel", startErr: ErrAlreadyStarted},
		{name: "failure surfaces reason", startErr: diskFull, wantErr: true, wantReason: diskFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := &stubSupervisor{err: tt.startErr}
			m := NewManager(sup, nil)

			err := m.EnsureShard(context.Background(), "s1", Options{Dir: "/data"})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var startErr *StartError
			require.ErrorAs(t, err, &startErr)
			assert.Equal(t, "s1", startErr.Shard)
			assert.Same(t, tt.wantReason, startErr.Reason)
			assert.ErrorIs(t, err, tt.wantReason)
			assert.Equal(t, "failed to start shard s1: no space left on device", err.Error())
		})
	}
}

func TestManager_EnsureShardEmptyName(t *testing.T) {
	sup := &stubSupervisor{}
	m := NewManager(sup, nil)

	assert.ErrorIs(t, m.EnsureShard(context.Background(), "", Options{}), ErrEmptyShardName)
	assert.Empty(t, sup.starts)
}

func TestAlreadyStartedError(t *testing.T) {
	err := &AlreadyStartedError{Handle: stubHandle("s1")}
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, "shard s1 already started", err.Error())
	assert.Equal(t, "shard already started", (&AlreadyStartedError{}).Error())
}
