package chain

import (
	"math"
	"sync/atomic"
)

// TrimCell is a lock-free scalar float64 cell, safe to read from the audio
// thread and write from any control thread. It stores the IEEE-754 bit
// pattern in a plain atomic.Uint64, which is the standard-library
// primitive for this: none of the pack's third-party libraries expose a
// lock-free float cell, and inventing a struct{sync.Mutex; v float64}
// wrapper would add a lock to the one place (Input node trim) the spec
// explicitly forbids locking.
type TrimCell struct {
	bits atomic.Uint64
}

// NewTrimCell returns a cell initialized to v.
func NewTrimCell(v float64) *TrimCell {
	c := &TrimCell{}
	c.Store(v)

	return c
}

// Store publishes a new value with release semantics.
func (c *TrimCell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Load reads the current value with acquire semantics.
func (c *TrimCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}
