package runtime

import (
	"sync/atomic"

	"github.com/pedalworks/dsp-engine/dsp/chain"
)

type chainHandle struct {
	sc   *chain.SignalChain
	spec *chain.ChainSpec
}

// PendingChain is the result of a validated, built-but-not-yet-published
// chain, produced by ChainRuntime.Build and handed to Publish only after
// the caller has persisted spec to disk (§4.12 ordering).
type PendingChain struct {
	Spec     *chain.ChainSpec
	Warnings []string

	handle *chainHandle
}

// ChainRuntime is the control/audio-thread boundary for the swappable
// signal chain: it owns the active chain (mutated only by the audio
// thread), the pending slot (published by the control thread, consumed by
// the audio thread), the last validated spec, and the retire queue that
// receives chains the audio thread has replaced.
type ChainRuntime struct {
	builder *chain.ChainBuilder
	ctx     chain.ProcessContext

	active  atomic.Pointer[chainHandle]
	pending atomic.Pointer[chainHandle]

	lastSpec   atomic.Pointer[chain.ChainSpec]
	firstBuild atomic.Bool

	// deferredOutgoing holds a chain that a prior Swap could not hand to
	// Retire because the ring was full. Only the audio thread touches it
	// (Swap is documented single-caller), so it needs no synchronization.
	deferredOutgoing *chain.SignalChain

	Retire *RetireQueue
}

// SwapResult reports what a single Swap call did.
type SwapResult struct {
	// Swapped is true if a new chain was installed as active this call.
	Swapped bool
	// RetireFull is true if a chain (the one just replaced, or one still
	// waiting from a previous call) could not be handed to the retire
	// ring this call and is being held for retry.
	RetireFull bool
}

// NewChainRuntime builds a ChainRuntime. ctx is shared by every chain this
// runtime ever builds, so shared-state pointers (ParamHandle-backed trim
// cells) stay consistent across rebuilds.
func NewChainRuntime(builder *chain.ChainBuilder, ctx chain.ProcessContext) *ChainRuntime {
	return &ChainRuntime{builder: builder, ctx: ctx, Retire: NewRetireQueue()}
}

// Build validates and constructs spec into a SignalChain without
// publishing it. It is safe to call concurrently with Swap, but not with
// itself (the control server serves one request at a time).
func (r *ChainRuntime) Build(spec *chain.ChainSpec) (*PendingChain, error) {
	seed := r.firstBuild.CompareAndSwap(false, true)

	result, err := r.builder.Build(spec, r.ctx, seed)
	if err != nil {
		if seed {
			// Building the very first chain failed; let the next attempt
			// still count as "first" so InputTrimLin gets seeded once a
			// spec finally succeeds.
			r.firstBuild.Store(false)
		}

		return nil, err
	}

	return &PendingChain{
		Spec:     spec,
		Warnings: result.Warnings,
		handle:   &chainHandle{sc: result.Chain, spec: spec},
	}, nil
}

// Publish makes p the pending chain, overwriting any not-yet-consumed
// prior publication (coalescing per §4.7 step 2/§8 invariant 4). Also
// updates LastSpec.
func (r *ChainRuntime) Publish(p *PendingChain) {
	r.lastSpec.Store(p.Spec)
	r.pending.Store(p.handle)
}

// LastSpec returns the most recently published spec, or nil if none has
// ever been published.
func (r *ChainRuntime) LastSpec() *chain.ChainSpec {
	return r.lastSpec.Load()
}

// ActiveSpec returns the spec of the chain currently installed as active,
// or nil.
func (r *ChainRuntime) ActiveSpec() *chain.ChainSpec {
	h := r.active.Load()
	if h == nil {
		return nil
	}

	return h.spec
}

// HasPending reports whether a chain is waiting to be installed, without
// consuming it. The caller uses this to detect a swap one period before
// it actually happens, so it can fade out the outgoing chain's last block
// first.
func (r *ChainRuntime) HasPending() bool {
	return r.pending.Load() != nil
}

// Swap must be called once per period from the audio thread, between the
// capture read and chain processing. If a previous swap's outgoing chain
// is still waiting for retire-ring space, Swap retries offering that same
// chain and does not install anything new this period, even if a chain is
// waiting in pending — only one swap may be in flight at a time.
// Otherwise it consumes the pending slot (coalescing any further
// publications that raced in) and installs the result as active,
// offering the chain it replaced to Retire.
func (r *ChainRuntime) Swap() SwapResult {
	if r.deferredOutgoing != nil {
		if r.Retire.Offer(r.deferredOutgoing) {
			r.deferredOutgoing = nil
			return SwapResult{}
		}

		return SwapResult{RetireFull: true}
	}

	next := r.pending.Swap(nil)
	if next == nil {
		return SwapResult{}
	}

	for {
		newer := r.pending.Swap(nil)
		if newer == nil {
			break
		}

		next = newer
	}

	outgoing := r.active.Swap(next)
	if outgoing == nil {
		return SwapResult{Swapped: true}
	}

	if !r.Retire.Offer(outgoing.sc) {
		r.deferredOutgoing = outgoing.sc
		return SwapResult{Swapped: true, RetireFull: true}
	}

	return SwapResult{Swapped: true}
}

// Active returns the chain currently installed as active, or nil before
// the first Swap.
func (r *ChainRuntime) Active() *chain.SignalChain {
	h := r.active.Load()
	if h == nil {
		return nil
	}

	return h.sc
}
