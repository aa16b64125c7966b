// Package timemgr supplies monotone block timestamps to the rest of the
// node. A single Manager is shared (by reference) across every reader;
// BlockProducer advances it as blocks seal, and the node's admin
// operations (IncreaseTime, SetNextBlockTimestamp, SetIntervalMining) also
// mutate it.
package timemgr

import (
	"fmt"
	"sync"
)

// Manager tracks the current timestamp (seconds) plus an optional forced
// next value and an optional fixed interval, mirroring the node's
// pin/interval/enforce timestamp semantics.
type Manager struct {
	mu              sync.RWMutex
	current         uint64
	next            *uint64
	interval        *uint64
}

// New creates a Manager seeded at the given timestamp.
func New(current uint64) *Manager {
	return &Manager{current: current}
}

// Current returns the timestamp the clock last advanced to. There might
// already be a logical event (a sealed block) recorded at this value.
func (m *Manager) Current() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// PeekNext reports what Advance would return without mutating state.
func (m *Manager) PeekNext() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.next != nil {
		return *m.next
	}
	return m.current + m.intervalLocked()
}

func (m *Manager) intervalLocked() uint64 {
	if m.interval != nil {
		return *m.interval
	}
	return 1
}

// Advance moves the clock to its next timestamp and returns it. Subsequent
// calls return monotonically increasing values; a pending forced value
// (from EnforceNext) takes priority over the interval.
func (m *Manager) Advance() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint64
	if m.next != nil {
		n = *m.next
		m.next = nil
	} else {
		n = m.current + m.intervalLocked()
	}
	m.current = n
	return n
}

// SetCurrentUnchecked force-sets the clock, clearing any pending forced
// next value, and returns the signed delta from the previous value.
func (m *Manager) SetCurrentUnchecked(timestamp uint64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	diff := int64(timestamp) - int64(m.current)
	m.next = nil
	m.current = timestamp
	return diff
}

// EnforceNext forces the next call to Advance to return timestamp exactly.
// timestamp must be strictly in the future of the current value.
func (m *Manager) EnforceNext(timestamp uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timestamp <= m.current {
		return fmt.Errorf("timemgr: timestamp (%d) must be greater than the last used timestamp (%d)", timestamp, m.current)
	}
	m.next = &timestamp
	return nil
}

// IncreaseTime fast-forwards the clock by seconds and returns the new
// current value.
func (m *Manager) IncreaseTime(seconds uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.current + seconds
	m.next = nil
	m.current = next
	return next
}

// Interval returns the configured fixed block-timestamp interval, and
// whether one is set.
func (m *Manager) Interval() (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.interval == nil {
		return 0, false
	}
	return *m.interval, true
}

// SetInterval installs (or updates) the fixed interval used when no
// forced next value is pending.
func (m *Manager) SetInterval(seconds uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = &seconds
}

// RemoveInterval clears the fixed interval, reverting to the default
// 1-second cadence. Reports whether an interval had been set.
func (m *Manager) RemoveInterval() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.interval != nil
	m.interval = nil
	return had
}
