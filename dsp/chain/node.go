package chain

import "github.com/pedalworks/dsp-engine/dsp/core"

// Node is the uniform processing contract every chain element implements.
// Process must be allocation-free, lock-free, and panic-free: it runs on
// the audio thread once the node is installed as part of the active
// SignalChain.
type Node interface {
	ID() string
	Type() string
	Process(in, out []float64, n int)
}

func dbToLin(db float64) float64 {
	return core.DBToLinear(db)
}

func clamp(v, lo, hi float64) float64 {
	return core.Clamp(v, lo, hi)
}

// gainMix caches the two parameters every node accepts: post-node gain and
// wet/dry mix. Both are resolved to linear/ratio form once at build time.
type gainMix struct {
	levelLin float64
	wet      float64
	dry      float64
}

func newGainMix(spec NodeSpec) gainMix {
	levelDb := clamp(spec.NumParam("levelDb", 0), -48, 24)
	mix := clamp(spec.NumParam("mix", 1), 0, 1)

	return gainMix{
		levelLin: dbToLin(levelDb),
		wet:      mix,
		dry:      1 - mix,
	}
}

// applyWetDry writes dst[i] = dry*dry_in[i] + wet*(wet_in[i]*g.levelLin).
// dry_in and wet_in may be the same slice.
func (g gainMix) applyWetDry(dst, dryIn, wetIn []float64, n int) {
	for i := range n {
		dst[i] = g.dry*dryIn[i] + g.wet*(wetIn[i]*g.levelLin)
	}
}

// nodeEnabled resolves the effective enabled flag: the "enabled" param
// overrides the top-level field when present.
func nodeEnabled(spec NodeSpec) bool {
	return spec.BoolParam("enabled", spec.Enabled)
}

// softClip implements the cubic soft clipper used by Overdrive and,
// optionally, NamModel's pre-model stage: c - c^3/3 with c = clamp(x,-1,1),
// so the output stays within [-2/3, +2/3].
func softClip(x float64) float64 {
	c := clamp(x, -1, 1)
	return c - c*c*c/3
}

// bypassWrapper makes any Node's "enabled=false" bypass switch uniform:
// a disabled node copies input to output verbatim and never touches the
// wrapped node's internal state.
type bypassWrapper struct {
	inner Node
}

func withBypass(spec NodeSpec, inner Node) Node {
	if nodeEnabled(spec) {
		return inner
	}

	return &bypassWrapper{inner: inner}
}

func (b *bypassWrapper) ID() string   { return b.inner.ID() }
func (b *bypassWrapper) Type() string { return b.inner.Type() }

func (b *bypassWrapper) Process(in, out []float64, count int) {
	copy(out[:count], in[:count])
}
