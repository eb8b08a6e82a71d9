package chain

import (
	"fmt"
	"sync/atomic"
	"time"
)

// NodeTiming is a snapshot of one node type's accumulated processing time.
type NodeTiming struct {
	Calls int64
	SumNs int64
	MaxNs int64
}

type timingBucket struct {
	calls atomic.Int64
	sumNs atomic.Int64
	maxNs atomic.Int64
}

func (b *timingBucket) record(d time.Duration) {
	ns := d.Nanoseconds()
	b.calls.Add(1)
	b.sumNs.Add(ns)

	for {
		cur := b.maxNs.Load()
		if ns <= cur {
			return
		}

		if b.maxNs.CompareAndSwap(cur, ns) {
			return
		}
	}
}

func (b *timingBucket) snapshot() NodeTiming {
	return NodeTiming{Calls: b.calls.Load(), SumNs: b.sumNs.Load(), MaxNs: b.maxNs.Load()}
}

// SignalChain runs an ordered list of Nodes over a fixed-capacity pair of
// ping-pong buffers, per §4.5. It is built once by ChainBuilder and then
// only ever has Process called on it from the audio thread; nothing about
// it allocates once built.
type SignalChain struct {
	nodes          []Node
	bufA, bufB     []float64
	maxBlockFrames int

	timingEnabled atomic.Bool
	timing        map[string]*timingBucket

	bypassNam atomic.Bool
	bypassIr  atomic.Bool
}

// NewSignalChain wires nodes into a SignalChain sized for maxBlockFrames.
func NewSignalChain(nodes []Node, maxBlockFrames int) *SignalChain {
	cap := max(1, maxBlockFrames)

	timing := make(map[string]*timingBucket)
	for _, n := range nodes {
		if _, ok := timing[n.Type()]; !ok {
			timing[n.Type()] = &timingBucket{}
		}
	}

	return &SignalChain{
		nodes:          nodes,
		bufA:           make([]float64, cap),
		bufB:           make([]float64, cap),
		maxBlockFrames: cap,
		timing:         timing,
	}
}

// SetTimingEnabled toggles per-node-type timing collection, matching the
// NODE_TIMING environment knob. Safe to call from any thread; the audio
// thread reads it via an atomic load once per block.
func (s *SignalChain) SetTimingEnabled(enabled bool) {
	s.timingEnabled.Store(enabled)
}

// TimingSnapshot returns a copy of the accumulated per-node-type timing,
// keyed by node type. Intended to be polled by the stats sink, never by
// the audio thread.
func (s *SignalChain) TimingSnapshot() map[string]NodeTiming {
	out := make(map[string]NodeTiming, len(s.timing))
	for typ, b := range s.timing {
		out[typ] = b.snapshot()
	}

	return out
}

// SetBypassNam toggles a live override that mutes the nam_model stage
// (copies its input straight to its output) regardless of the node's own
// enabled state, matching the BYPASS_NAM knob.
func (s *SignalChain) SetBypassNam(bypass bool) {
	s.bypassNam.Store(bypass)
}

// SetBypassIr is SetBypassNam's counterpart for the ir_convolver stage.
func (s *SignalChain) SetBypassIr(bypass bool) {
	s.bypassIr.Store(bypass)
}

// Nodes returns the chain's nodes in processing order.
func (s *SignalChain) Nodes() []Node {
	return s.nodes
}

// MaxBlockFrames returns the capacity the chain was built with.
func (s *SignalChain) MaxBlockFrames() int {
	return s.maxBlockFrames
}

// Process runs in[:n] through every node in order and writes the result to
// out[:n]. If n exceeds the chain's built capacity, the excess tail is
// passed through unprocessed rather than panicking or truncating the
// caller's buffer, since that condition means the audio engine negotiated
// a period larger than what the chain was sized for.
func (s *SignalChain) Process(in, out []float64, n int) {
	if n > s.maxBlockFrames {
		copy(out[:n], in[:n])
		s.processInto(out[:s.maxBlockFrames], out[:s.maxBlockFrames], s.maxBlockFrames)

		return
	}

	s.processInto(in[:n], out[:n], n)
}

func (s *SignalChain) processInto(in, out []float64, n int) {
	if len(s.nodes) == 0 {
		copy(out, in)
		return
	}

	timed := s.timingEnabled.Load()
	bypassNam := s.bypassNam.Load()
	bypassIr := s.bypassIr.Load()
	a, b := s.bufA[:n], s.bufB[:n]
	src := in

	for i, node := range s.nodes {
		dst := out
		last := i == len(s.nodes)-1

		if !last {
			dst = a
			if i%2 == 1 {
				dst = b
			}
		}

		typ := node.Type()
		if (bypassNam && typ == TypeNamModel) || (bypassIr && typ == TypeIrConvolver) {
			copy(dst[:n], src[:n])
		} else if timed {
			start := time.Now()
			node.Process(src, dst, n)
			s.timing[typ].record(time.Since(start))
		} else {
			node.Process(src, dst, n)
		}

		if last {
			return
		}

		src = dst
	}
}

// checkBuilt is a defensive guard used by ChainBuilder before handing a
// SignalChain to the runtime.
func (s *SignalChain) checkBuilt() error {
	if len(s.nodes) < 2 {
		return fmt.Errorf("chain: signal chain has fewer than 2 nodes (%d)", len(s.nodes))
	}

	return nil
}
