// Package clock provides the logical time source for ChainState.
//
// The engine orders every mutation by a single monotonically non-decreasing
// block height. The Clock interface is the only place time enters the
// system: each operation reads the height exactly once and treats it as
// fixed for the operation's duration.
package clock

import "sync"

// Clock exposes the current logical time as a block height.
// Implementations must be monotonically non-decreasing across calls.
type Clock interface {
	Height() uint64
}

// Manual is a hand-advanced Clock for deterministic runs and tests.
// It enforces monotonicity: attempts to move the height backwards are
// ignored.
type Manual struct {
	mu     sync.RWMutex
	height uint64
}

// NewManual creates a Manual clock starting at the given height.
func NewManual(start uint64) *Manual {
	return &Manual{height: start}
}

// Height returns the current block height.
func (m *Manual) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

// Advance moves the clock forward by delta blocks and returns the new height.
func (m *Manual) Advance(delta uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height += delta
	return m.height
}

// Set moves the clock to the given height. Heights below the current value
// are ignored, preserving monotonicity.
func (m *Manual) Set(height uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if height > m.height {
		m.height = height
	}
	return m.height
}

// Fixed is a Clock pinned at a single height. Useful for replaying a
// historical operation at the height it originally observed.
type Fixed uint64

// Height returns the pinned block height.
func (f Fixed) Height() uint64 { return uint64(f) }
