package chain

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

const irFadeSamples = 128

// shapeIR applies the IrConvolver node's non-RT IR shaping: optional
// static gain, optional peak normalization to a target dBFS, and optional
// truncation with a raised-cosine fade to avoid a spectral discontinuity
// at the cut point. It never mutates mono.
func shapeIR(mono []float64, sampleRate int, spec NodeSpec) ([]float64, string) {
	out := make([]float64, len(mono))
	copy(out, mono)

	var warning string

	if _, ok := spec.Params["gainDb"]; ok {
		g := dbToLin(spec.NumParam("gainDb", 0))
		vecmath.ScaleBlockInPlace(out, g)
	}

	if _, ok := spec.Params["targetDb"]; ok {
		out = normalizeToTarget(out, spec.NumParam("targetDb", -6))
	}

	if maxSamples := resolveMaxSamples(spec, sampleRate); maxSamples > 0 && maxSamples < len(out) {
		out = truncateWithFade(out, maxSamples)
		warning = "IR truncated to configured maximum length"
	}

	return out, warning
}

func normalizeToTarget(ir []float64, targetDb float64) []float64 {
	peak := vecmath.MaxAbs(ir)

	if peak == 0 {
		return ir
	}

	vecmath.ScaleBlockInPlace(ir, dbToLin(targetDb)/peak)

	return ir
}

func resolveMaxSamples(spec NodeSpec, sampleRate int) int {
	maxSamples := 0

	if _, ok := spec.Params["maxSamples"]; ok {
		maxSamples = int(spec.NumParam("maxSamples", 0))
	}

	if _, ok := spec.Params["maxMs"]; ok {
		ms := spec.NumParam("maxMs", 0)
		bySamples := int(ms * float64(sampleRate) / 1000)

		if maxSamples == 0 || bySamples < maxSamples {
			maxSamples = bySamples
		}
	}

	return maxSamples
}

func truncateWithFade(ir []float64, length int) []float64 {
	out := ir[:length]
	n := min(irFadeSamples, length)

	for i := range n {
		w := 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(n)))
		out[length-n+i] *= w
	}

	return out
}
