package shard

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/store"
	"golang.org/x/sync/singleflight"
)

// PebbleShard is a running shard backed by its own pebble database
type PebbleShard struct {
	name  string
	path  string
	store *store.PebbleStore
}

func (s *PebbleShard) Shard() string { return s.name }

// Path returns the shard's data directory
func (s *PebbleShard) Path() string { return s.path }

// Store returns the shard's transactional store
func (s *PebbleShard) Store() *store.PebbleStore { return s.store }

// PebbleSupervisor runs shard storage in-process, one pebble database per
// shard. Concurrent starts of the same shard open the database once.
type PebbleSupervisor struct {
	mu     sync.Mutex
	shards map[string]*PebbleShard
	closed bool
	group  singleflight.Group
	logger logger.Logger
}

// NewPebbleSupervisor creates an empty supervisor
func NewPebbleSupervisor(log logger.Logger) *PebbleSupervisor {
	return &PebbleSupervisor{
		shards: make(map[string]*PebbleShard),
		logger: logger.OrNop(log),
	}
}

// Start opens the shard's database under opts.Dir. Callers that lose a race
// with a concurrent start of the same shard get *AlreadyStartedError.
func (p *PebbleSupervisor) Start(ctx context.Context, name string, opts Options) (Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if opts.Dir == "" {
		return nil, ErrMissingDataDir
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if shard, err := p.lookup(name); shard != nil || err != nil {
		if err != nil {
			return nil, err
		}
		return nil, &AlreadyStartedError{Handle: shard}
	}

	opened := false
	v, err, _ := p.group.Do(name, func() (interface{}, error) {
		// A start that completed between lookup and Do already registered the shard
		shard, err := p.lookup(name)
		if err != nil {
			return nil, err
		}
		if shard != nil {
			return shard, nil
		}
		opened = true
		return p.open(name, opts)
	})
	if err != nil {
		return nil, err
	}

	shard := v.(*PebbleShard)
	if !opened {
		return nil, &AlreadyStartedError{Handle: shard}
	}
	return shard, nil
}

func (p *PebbleSupervisor) lookup(name string) (*PebbleShard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrSupervisorClosed
	}
	return p.shards[name], nil
}

func (p *PebbleSupervisor) open(name string, opts Options) (*PebbleShard, error) {
	path := filepath.Join(opts.Dir, name)
	s, err := store.NewPebbleStore(store.PebbleStoreConfig{Path: path, Opts: opts.Pebble})
	if err != nil {
		return nil, err
	}
	shard := &PebbleShard{name: name, path: path, store: s}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = s.Close()
		return nil, ErrSupervisorClosed
	}
	p.shards[name] = shard
	p.mu.Unlock()

	p.logger.Debug("shard storage opened", "shard", name, "path", path)
	return shard, nil
}

// Get returns a running shard
func (p *PebbleSupervisor) Get(name string) (*PebbleShard, error) {
	shard, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if shard == nil {
		return nil, ErrShardNotRunning
	}
	return shard, nil
}

// Stop closes a running shard
func (p *PebbleSupervisor) Stop(name string) error {
	p.mu.Lock()
	shard, ok := p.shards[name]
	delete(p.shards, name)
	p.mu.Unlock()

	if !ok {
		return ErrShardNotRunning
	}
	p.logger.Debug("shard stopped", "shard", name)
	return shard.store.Close()
}

// Running returns the names of all running shards in sorted order
func (p *PebbleSupervisor) Running() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.shards))
	for name := range p.shards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every shard; later starts fail with ErrSupervisorClosed
func (p *PebbleSupervisor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrSupervisorClosed
	}
	p.closed = true
	shards := p.shards
	p.shards = make(map[string]*PebbleShard)
	p.mu.Unlock()

	var errs []error
	for _, shard := range shards {
		if err := shard.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyShardName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidShardName
	}
	return nil
}
