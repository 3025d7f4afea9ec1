package iterator

import (
	"sync/atomic"
	"time"
)

// Clock reads the logical time used to stamp iterator start times
type Clock interface {
	NowMicros() int64
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() int64

func (f ClockFunc) NowMicros() int64 {
	return f()
}

// SystemClock returns wall-clock microseconds, strictly increasing within
// the process even when the wall clock stalls or steps back. The zero value
// reads time.Now.
type SystemClock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewSystemClock creates a clock backed by time.Now
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

func (c *SystemClock) NowMicros() int64 {
	read := c.now
	if read == nil {
		read = time.Now
	}
	for {
		now := read().UnixMicro()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
