package audioengine

import "testing"

func TestApplyFadeOutRampsLastSamplesToZero(t *testing.T) {
	block := []float64{1, 1, 1, 1}
	applyFadeOut(block, 4)

	if block[3] != 0 {
		t.Fatalf("last sample = %v, want 0", block[3])
	}
	if block[0] <= block[1] || block[1] <= block[2] || block[2] <= block[3] {
		t.Fatalf("fade-out is not monotonically decreasing: %v", block)
	}
}

func TestApplyFadeInRampsFirstSamplesFromZero(t *testing.T) {
	block := []float64{1, 1, 1, 1}
	done := applyFadeIn(block, 4, 0)

	if done != 4 {
		t.Fatalf("done = %d, want 4", done)
	}
	if block[3] != 1 {
		t.Fatalf("last ramped sample = %v, want 1", block[3])
	}
	if block[0] >= block[1] || block[1] >= block[2] || block[2] >= block[3] {
		t.Fatalf("fade-in is not monotonically increasing: %v", block)
	}
}

func TestFadeHelpersClampRampLengthToBlockSize(t *testing.T) {
	block := []float64{1, 1}
	applyFadeOut(block, 100)
	applyFadeIn(block, 100, 0)

	// Should not panic and should stay within the block's bounds.
	if len(block) != 2 {
		t.Fatalf("unexpected block length %d", len(block))
	}
}

func TestApplyFadeInContinuesAcrossBlocksWhenRampExceedsBlockSize(t *testing.T) {
	const total = 6
	done := 0

	block1 := []float64{1, 1, 1, 1}
	done += applyFadeIn(block1, total, done)
	if done != 4 {
		t.Fatalf("done after block1 = %d, want 4", done)
	}
	// gains should be 1/6, 2/6, 3/6, 4/6, strictly increasing.
	for i := 1; i < len(block1); i++ {
		if block1[i] <= block1[i-1] {
			t.Fatalf("block1 not monotonically increasing: %v", block1)
		}
	}
	if block1[3] >= 1 {
		t.Fatalf("block1[3] = %v, should still be ramping (< 1)", block1[3])
	}

	block2 := []float64{1, 1, 1, 1}
	done += applyFadeIn(block2, total, done)
	if done != total {
		t.Fatalf("done after block2 = %d, want %d", done, total)
	}
	// The ramp must continue from where block1 left off (5/6, 6/6), not
	// restart from 0: block2's first sample must be greater than block1's
	// last ramped sample.
	if block2[0] <= block1[3] {
		t.Fatalf("fade-in restarted across blocks: block1[3]=%v block2[0]=%v", block1[3], block2[0])
	}
	if block2[1] != 1 {
		t.Fatalf("block2[1] = %v, want 1 (ramp complete)", block2[1])
	}
	// Remaining samples are untouched once the ramp completes mid-block.
	if block2[2] != 1 || block2[3] != 1 {
		t.Fatalf("samples past ramp completion should be unmodified: %v", block2)
	}

	// Further calls against the same total/done are no-ops.
	block3 := []float64{1, 1}
	if n := applyFadeIn(block3, total, done); n != 0 {
		t.Fatalf("applyFadeIn after ramp complete advanced %d samples, want 0", n)
	}
}
