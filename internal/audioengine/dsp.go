package audioengine

import "math"

const int32Max = 1<<31 - 1

// downmixCaptureToMono averages interleaved signed-32 capture frames across
// channels and scales to [-1, +1] using s / 2^31, per §4.9 step 3.
func downmixCaptureToMono(buf []int32, channels, frames int, dst []float64) {
	inv := 1.0 / float64(channels)
	const scale = 1.0 / (1 << 31)

	for i := range frames {
		var sum float64

		base := i * channels
		for ch := range channels {
			sum += float64(buf[base+ch]) * scale
		}

		dst[i] = sum * inv
	}
}

// applyOutputGain scales in-place by gainLin.
func applyOutputGain(block []float64, gainLin float64) {
	for i := range block {
		block[i] *= gainLin
	}
}

// sanitizeAndClamp replaces non-finite samples with 0 and clamps to
// [-1, +1], per §4.9 step 7.
func sanitizeAndClamp(block []float64) {
	for i, v := range block {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			block[i] = 0
			continue
		}

		if v > 1 {
			block[i] = 1
		} else if v < -1 {
			block[i] = -1
		}
	}
}

// interleavePlayback converts a sanitized mono float block to signed-32
// interleaved frames, replicated across playbackChannels.
func interleavePlayback(mono []float64, playbackChannels int, dst []int32) {
	for i, v := range mono {
		s := int32(math.Round(v * int32Max))
		base := i * playbackChannels

		for ch := range playbackChannels {
			dst[base+ch] = s
		}
	}
}
