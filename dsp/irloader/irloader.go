package irloader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cwbudde/wav"
)

// ErrEmptyFile is returned when a decoded file yields zero frames.
var ErrEmptyFile = errors.New("irloader: file has zero frames")

// Result is the decoded, downmixed, DC-trimmed impulse response.
type Result struct {
	SampleRate int
	Mono       []float64
}

// Load decodes the PCM audio file at path, downmixes it to mono by
// per-sample averaging across channels, and removes the arithmetic-mean
// DC offset. No resampling is performed; the caller is responsible for
// verifying SampleRate matches the engine's negotiated rate.
func Load(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("irloader: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Result{}, fmt.Errorf("irloader: not a valid PCM file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("irloader: decode %s: %w", path, err)
	}

	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return Result{}, fmt.Errorf("irloader: invalid buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	sampleRate := buf.Format.SampleRate

	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("irloader: invalid sample rate %d: %s", sampleRate, path)
	}

	frames := len(buf.Data) / numCh
	if frames == 0 {
		return Result{}, fmt.Errorf("irloader: %s: %w", path, ErrEmptyFile)
	}

	mono := downmix(buf.Data, numCh, frames)
	removeDCOffset(mono)

	return Result{SampleRate: sampleRate, Mono: mono}, nil
}

func downmix(data []float32, numCh, frames int) []float64 {
	mono := make([]float64, frames)

	if numCh == 1 {
		for i := range frames {
			mono[i] = float64(data[i])
		}

		return mono
	}

	inv := 1.0 / float64(numCh)

	for i := range frames {
		var sum float64

		base := i * numCh
		for ch := range numCh {
			sum += float64(data[base+ch])
		}

		mono[i] = sum * inv
	}

	return mono
}

func removeDCOffset(mono []float64) {
	if len(mono) == 0 {
		return
	}

	var sum float64
	for _, v := range mono {
		sum += v
	}

	mean := sum / float64(len(mono))

	for i := range mono {
		mono[i] -= mean
	}
}
