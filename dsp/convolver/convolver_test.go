package convolver

import (
	"math"
	"math/rand"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestInitErrors(t *testing.T) {
	c := New()

	if err := c.Init(nil, 4); err == nil {
		t.Fatal("expected error for empty ir")
	}

	if err := c.Init([]float64{1}, 0); err == nil {
		t.Fatal("expected error for zero block")
	}
}

func TestProcessBeforeReadyFails(t *testing.T) {
	c := New()
	in := make([]float64, 4)
	out := make([]float64, 4)

	if err := c.Process(in, out); err == nil {
		t.Fatal("expected error when not ready")
	}
}

// S5: unit impulse IR reproduces the input verbatim.
func TestUnitImpulseIdentity(t *testing.T) {
	c := New()
	if err := c.Init([]float64{1.0}, 4); err != nil {
		t.Fatalf("init: %v", err)
	}

	in := []float64{0.1, -0.2, 0.3, 0.4}
	out := make([]float64, 4)

	if err := c.Process(in, out); err != nil {
		t.Fatalf("process: %v", err)
	}

	for i := range in {
		if !almostEqual(out[i], in[i], 1e-6) {
			t.Fatalf("sample %d: got %v want %v", i, out[i], in[i])
		}
	}
}

// S6: one-sample-delayed impulse response delays the signal by one sample,
// carrying the tail into the following block.
func TestDelayedImpulse(t *testing.T) {
	c := New()
	if err := c.Init([]float64{0, 1}, 4); err != nil {
		t.Fatalf("init: %v", err)
	}

	in1 := []float64{1, 2, 3, 4}
	out1 := make([]float64, 4)
	if err := c.Process(in1, out1); err != nil {
		t.Fatalf("process 1: %v", err)
	}

	want1 := []float64{0, 1, 2, 3}
	for i := range want1 {
		if !almostEqual(out1[i], want1[i], 1e-6) {
			t.Fatalf("block1[%d]: got %v want %v", i, out1[i], want1[i])
		}
	}

	in2 := []float64{0, 0, 0, 0}
	out2 := make([]float64, 4)
	if err := c.Process(in2, out2); err != nil {
		t.Fatalf("process 2: %v", err)
	}

	want2 := []float64{4, 0, 0, 0}
	for i := range want2 {
		if !almostEqual(out2[i], want2[i], 1e-6) {
			t.Fatalf("block2[%d]: got %v want %v", i, out2[i], want2[i])
		}
	}
}

// Property: linearity. conv(a*x + b*y) == a*conv(x) + b*conv(y).
func TestLinearity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	ir := make([]float64, 37)
	for i := range ir {
		ir[i] = rng.Float64()*2 - 1
	}

	const block = 16

	newConv := func() *FftConvolver {
		c := New()
		if err := c.Init(ir, block); err != nil {
			t.Fatalf("init: %v", err)
		}
		return c
	}

	cx := newConv()
	cy := newConv()
	cxy := newConv()

	a, b := 0.7, -1.3

	for range 1000 {
		x := randomBlock(rng, block)
		y := randomBlock(rng, block)

		combined := make([]float64, block)
		for i := range combined {
			combined[i] = a*x[i] + b*y[i]
		}

		outX := make([]float64, block)
		outY := make([]float64, block)
		outXY := make([]float64, block)

		if err := cx.Process(x, outX); err != nil {
			t.Fatalf("process x: %v", err)
		}

		if err := cy.Process(y, outY); err != nil {
			t.Fatalf("process y: %v", err)
		}

		if err := cxy.Process(combined, outXY); err != nil {
			t.Fatalf("process combined: %v", err)
		}

		for i := range block {
			want := a*outX[i] + b*outY[i]
			if !almostEqual(outXY[i], want, 1e-5*max(1, math.Abs(want))) {
				t.Fatalf("linearity violated at sample %d: got %v want %v", i, outXY[i], want)
			}
		}
	}
}

// Property: after enough blocks of zero input following a nonzero
// excitation, the tail decays to (near) zero once the IR has fully drained.
func TestZeroInputDrainsToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	ir := make([]float64, 33)
	for i := range ir {
		ir[i] = rng.Float64()*2 - 1
	}

	const block = 8

	c := New()
	if err := c.Init(ir, block); err != nil {
		t.Fatalf("init: %v", err)
	}

	excite := randomBlock(rng, block)
	discard := make([]float64, block)
	if err := c.Process(excite, discard); err != nil {
		t.Fatalf("process excite: %v", err)
	}

	zero := make([]float64, block)
	out := make([]float64, block)

	partitions := c.Partitions()
	for range partitions + 2 {
		if err := c.Process(zero, out); err != nil {
			t.Fatalf("process zero: %v", err)
		}
	}

	for i, v := range out {
		if math.Abs(v) > 1e-6 {
			t.Fatalf("expected drained output near zero at %d, got %v", i, v)
		}
	}
}

func randomBlock(rng *rand.Rand, n int) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.Float64()*2 - 1
	}
	return b
}

func TestBlockSizeMismatch(t *testing.T) {
	c := New()
	if err := c.Init([]float64{1, 0.5}, 4); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := c.Process(make([]float64, 3), make([]float64, 4)); err == nil {
		t.Fatal("expected error on mismatched block size")
	}
}
