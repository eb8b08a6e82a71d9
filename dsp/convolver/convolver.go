package convolver

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by FftConvolver.
var (
	ErrInvalidBlockSize    = errors.New("convolver: invalid block size")
	ErrEmptyImpulseResponse = errors.New("convolver: empty impulse response")
	ErrNotReady            = errors.New("convolver: not initialized")
	ErrBlockSizeMismatch   = errors.New("convolver: process called with wrong block size")
)

// FftConvolver is a uniformly-partitioned overlap-save FFT convolver.
//
// The block size is fixed for the convolver's lifetime once Init succeeds.
// The impulse response is split into ceil(len(ir)/block) partitions of
// block samples each (the last zero-padded); each partition's spectrum is
// precomputed once. Process runs in O(P) complex multiply-accumulates per
// call, where P is the partition count, using a ring buffer of input
// spectra so the convolution overlaps correctly across calls.
type FftConvolver struct {
	block      int
	fftSize    int // 2*block
	partitions int

	ring []scratchSpectrum // ring of input spectra, len partitions
	h    []scratchSpectrum // precomputed IR partition spectra, len partitions
	w    int               // ring write index

	accum   []complex128 // per-call accumulator, len fftSize
	timeBuf []complex128 // per-call scratch for forward FFT input / inverse FFT output
	overlap []float64    // saved tail from previous call, len block

	plan  *algofft.Plan[complex128]
	ready bool
}

type scratchSpectrum = []complex128

// New returns an uninitialized convolver; call Init before Process.
func New() *FftConvolver {
	return &FftConvolver{}
}

// Ready reports whether Init has completed successfully.
func (c *FftConvolver) Ready() bool {
	return c.ready
}

// BlockSize returns the fixed block size, or 0 if not yet initialized.
func (c *FftConvolver) BlockSize() int {
	return c.block
}

// Partitions returns the number of IR partitions.
func (c *FftConvolver) Partitions() int {
	return c.partitions
}

// Init prepares the convolver for the given impulse response and fixed
// block size. It is not realtime-safe (it allocates and builds an FFT
// plan) and must be called off the audio thread.
func (c *FftConvolver) Init(ir []float64, block int) error {
	if block <= 0 {
		return fmt.Errorf("%w: block=%d", ErrInvalidBlockSize, block)
	}

	if len(ir) == 0 {
		return ErrEmptyImpulseResponse
	}

	n := block
	f := 2 * n
	partitions := (len(ir) + n - 1) / n

	plan, err := algofft.NewPlan64(f)
	if err != nil {
		return fmt.Errorf("convolver: fft plan init (size=%d): %w", f, err)
	}

	h := make([]scratchSpectrum, partitions)
	scratch := make([]complex128, f)

	for k := range partitions {
		for i := range scratch {
			scratch[i] = 0
		}

		start := k * n
		end := min(start+n, len(ir))

		for i := start; i < end; i++ {
			scratch[i-start] = complex(ir[i], 0)
		}

		h[k] = make([]complex128, f)
		if err := plan.Forward(h[k], scratch); err != nil {
			return fmt.Errorf("convolver: fft forward (partition %d): %w", k, err)
		}
	}

	// The ring must be allocated (zeroed) only after H is built: H's
	// construction reuses the same scratch slot for every partition, and
	// the ring must not alias it.
	ring := make([]scratchSpectrum, partitions)
	for k := range ring {
		ring[k] = make([]complex128, f)
	}

	c.block = n
	c.fftSize = f
	c.partitions = partitions
	c.ring = ring
	c.h = h
	c.w = 0
	c.accum = make([]complex128, f)
	c.timeBuf = make([]complex128, f)
	c.overlap = make([]float64, n)
	c.plan = plan
	c.ready = true

	return nil
}

// Process convolves one block of input with the impulse response,
// producing exactly len(in) == BlockSize() output samples. Allocation-free
// and safe to call from the audio thread once Ready.
func (c *FftConvolver) Process(in, out []float64) error {
	if !c.ready {
		return ErrNotReady
	}

	n := c.block
	if len(in) != n || len(out) != n {
		return fmt.Errorf("%w: got in=%d out=%d, want %d", ErrBlockSizeMismatch, len(in), len(out), n)
	}

	buf := c.timeBuf
	for i := range n {
		buf[i] = complex(in[i], 0)
	}

	for i := n; i < c.fftSize; i++ {
		buf[i] = 0
	}

	cur := c.ring[c.w]
	if err := c.plan.Forward(cur, buf); err != nil {
		return fmt.Errorf("convolver: fft forward: %w", err)
	}

	y := c.accum
	for i := range y {
		y[i] = 0
	}

	p := c.partitions
	for k := range p {
		idx := ((c.w-k)%p + p) % p
		x := c.ring[idx]
		hk := c.h[k]

		for i := range y {
			y[i] += x[i] * hk[i]
		}
	}

	if err := c.plan.Inverse(y, y); err != nil {
		return fmt.Errorf("convolver: fft inverse: %w", err)
	}

	for i := range n {
		out[i] = real(y[i]) + c.overlap[i]
	}

	for i := range n {
		c.overlap[i] = real(y[n+i])
	}

	c.w = (c.w + 1) % p

	return nil
}

// Reset clears all accumulated state (ring spectra and overlap tail) so
// the next Process call starts as if freshly initialized, without
// rebuilding the IR partitions.
func (c *FftConvolver) Reset() {
	if !c.ready {
		return
	}

	for _, x := range c.ring {
		for i := range x {
			x[i] = 0
		}
	}

	for i := range c.overlap {
		c.overlap[i] = 0
	}

	c.w = 0
}
