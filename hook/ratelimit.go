package hook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// A limiter idle for this many windows is pruned
const expiryWindowMultiplier = 3

// RateLimitHook caps how often one client may open its session within a
// fixed window. Reconnect storms from a single client are rejected before
// they reach the store.
type RateLimitHook struct {
	*Base
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	maxRate  int
	window   time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

type rateLimiter struct {
	count       int
	windowStart time.Time
	lastAccess  time.Time
}

// NewRateLimitHook allows maxRate session opens per client per window
func NewRateLimitHook(maxRate int, window time.Duration) *RateLimitHook {
	return &RateLimitHook{
		Base:     &Base{id: "rate-limit"},
		limiters: make(map[string]*rateLimiter),
		maxRate:  maxRate,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (h *RateLimitHook) Provides(event Event) bool {
	return event == OnSessionOpen || event == OnSessionDropped
}

// Init starts the background pruning of idle limiters
func (h *RateLimitHook) Init(config any) error {
	if h.window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", h.window)
	}
	go h.cleanupLoop()
	return nil
}

func (h *RateLimitHook) Stop() error {
	h.stopOnce.Do(func() { close(h.stop) })
	return nil
}

// OnSessionOpen counts the open against the client's window
func (h *RateLimitHook) OnSessionOpen(_ context.Context, clientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	limiter, exists := h.limiters[clientID]
	if !exists || now.Sub(limiter.windowStart) >= h.window {
		limiter = &rateLimiter{windowStart: now}
		h.limiters[clientID] = limiter
	}
	limiter.lastAccess = now
	limiter.count++

	if limiter.count > h.maxRate {
		return fmt.Errorf("%w: client %q opened %d sessions in %s", ErrRateLimitExceeded, clientID, limiter.count, h.window)
	}
	return nil
}

// OnSessionDropped forgets the client's window
func (h *RateLimitHook) OnSessionDropped(_ context.Context, clientID string) error {
	h.ResetClient(clientID)
	return nil
}

// ClientCount returns the current count for a specific client
func (h *RateLimitHook) ClientCount(clientID string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	limiter, exists := h.limiters[clientID]
	if !exists {
		return 0, false
	}
	return limiter.count, true
}

// ResetClient resets the rate limit for a specific client
func (h *RateLimitHook) ResetClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.limiters, clientID)
}

// Prune drops limiters that have been idle for several windows and returns
// how many were removed
func (h *RateLimitHook) Prune() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-h.window * expiryWindowMultiplier)
	removed := 0
	for id, limiter := range h.limiters {
		if limiter.lastAccess.Before(cutoff) {
			delete(h.limiters, id)
			removed++
		}
	}
	return removed
}

func (h *RateLimitHook) cleanupLoop() {
	ticker := time.NewTicker(h.window * expiryWindowMultiplier)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.Prune()
		}
	}
}
