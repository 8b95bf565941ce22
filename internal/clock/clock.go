// Package clock provides the monotonic time source command ages are
// measured against.
package clock

import (
	"sync"
	"time"
)

// Clock returns monotonic readings. Only differences between readings
// are meaningful.
type Clock interface {
	Now() time.Duration
}

// Monotonic returns the system monotonic clock.
func Monotonic() Clock {
	return monotonic{}
}

// Fake is a manually driven Clock for tests and simulations.
type Fake struct {
	mu  sync.Mutex
	now time.Duration
}

// NewFake returns a Fake clock reading start.
func NewFake(start time.Duration) *Fake {
	return &Fake{now: start}
}

// Now implements Clock
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to an absolute reading.
func (f *Fake) Set(now time.Duration) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

var (
	_ Clock = monotonic{}
	_ Clock = (*Fake)(nil)
)
