// Package clock provides the time source for the ledger. Every operation
// reads the clock once at entry, so a timestamp is stable for the duration
// of a single operation.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time to vesting and staking logic.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by the system time.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time { return time.Now() }

// Mock is a settable Clock for tests. Time never moves on its own;
// it only advances when Set or Advance is called.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock creates a Mock clock fixed at the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the mock to the given time.
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance moves the mock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
