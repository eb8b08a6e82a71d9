package audioengine

import "math"

// captureSanity tracks peak/RMS of the downmixed capture signal for the
// first CaptureSanitySecs seconds after stream start, warning once if the
// signal never rises above CaptureSilentPeak (likely an unplugged
// instrument or a dead gain stage).
type captureSanity struct {
	remainingFrames int
	sampleRate      int
	silentFloor     float64

	peak      float64
	sumSq     float64
	n         int
	warned    bool
	completed bool
}

func newCaptureSanity(sampleRate int, seconds float64, silentFloor float64) *captureSanity {
	if seconds <= 0 {
		return &captureSanity{completed: true}
	}

	return &captureSanity{
		remainingFrames: int(seconds * float64(sampleRate)),
		sampleRate:      sampleRate,
		silentFloor:     silentFloor,
	}
}

// observe feeds one block of mono capture samples into the window. It
// returns true exactly once, the first time the window completes with a
// suspiciously low peak.
func (s *captureSanity) observe(mono []float64) bool {
	if s.completed {
		return false
	}

	for _, v := range mono {
		a := math.Abs(v)
		if a > s.peak {
			s.peak = a
		}

		s.sumSq += v * v
		s.n++
	}

	s.remainingFrames -= len(mono)
	if s.remainingFrames > 0 {
		return false
	}

	s.completed = true

	if s.peak < s.silentFloor && !s.warned {
		s.warned = true
		return true
	}

	return false
}

func (s *captureSanity) rms() float64 {
	if s.n == 0 {
		return 0
	}

	return math.Sqrt(s.sumSq / float64(s.n))
}

func (s *captureSanity) peakLevel() float64 {
	return s.peak
}
