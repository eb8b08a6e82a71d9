package chain

import "github.com/pedalworks/dsp-engine/dsp/convolver"

// IrConvolverNode runs a cabinet impulse response through a fixed-block
// FftConvolver, plus the standard gain/mix stage.
type IrConvolverNode struct {
	id   string
	gm   gainMix
	conv *convolver.FftConvolver

	wetBuf []float64
}

// NewIrConvolverNode wraps an already-initialized convolver. Shaping the
// IR (gain, target normalization, truncation) happens before Init, in the
// factory that builds conv.
func NewIrConvolverNode(spec NodeSpec, ctx ProcessContext, conv *convolver.FftConvolver) *IrConvolverNode {
	return &IrConvolverNode{
		id:     spec.ID,
		gm:     newGainMix(spec),
		conv:   conv,
		wetBuf: make([]float64, max(1, ctx.MaxBlockFrames)),
	}
}

func (n *IrConvolverNode) ID() string   { return n.id }
func (n *IrConvolverNode) Type() string { return TypeIrConvolver }

func (n *IrConvolverNode) Process(in, out []float64, count int) {
	wet := n.wetBuf[:count]

	if err := n.conv.Process(in[:count], wet); err != nil {
		// Convolver misconfiguration (block size drift) is a build-time
		// invariant violation, not something the audio thread can recover
		// from meaningfully; fail safe to dry signal for this block.
		copy(wet, in[:count])
	}

	n.gm.applyWetDry(out[:count], in, wet, count)
}
