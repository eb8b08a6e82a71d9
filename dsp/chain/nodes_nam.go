package chain

import (
	"math"

	"github.com/pedalworks/dsp-engine/dsp/core"
)

// namReferenceDbu is the conventional "12.2 dBu @ 0 dBFS sine" operating
// level used to scale the signal into a NAM model's expected input level.
// It is a convention carried over from the original engine, not a
// measured constant. The reference itself is fixed: no node parameter
// changes it. A model implementing NamModelLeveler reports its own
// expected level, and the node scales by the difference between the two.
const namReferenceDbu = 12.2

// NamModel is the opaque external neural-amp-model inference block. It is
// out of scope for this module (§1): loading, weight formats, and
// inference are supplied by an external library. reset must be called
// once before Process and whenever the block size or sample rate changes.
type NamModel interface {
	Reset(sampleRate, maxBlockFrames int) error
	Process(in, out []float32, n int)
}

// NamModelLeveler is an optional capability a NamModel may implement to
// report the dBu-at-0dBFS operating level it was trained/calibrated for.
type NamModelLeveler interface {
	ExpectedDbu() float64
}

// NamModelNode wraps a NamModel with the pre/post gain staging, input
// limiting, and optional pre-model soft clipping described in §4.3.
type NamModelNode struct {
	id    string
	gm    gainMix
	model NamModel

	preGainLin   float64
	postGainLin  float64
	inLimit      float64
	softclipOn   bool
	softclipTanh bool
	scale        float64

	in32   []float32
	out32  []float32
	wetBuf []float64
}

// NewNamModelNode builds a NamModelNode. model must already be loaded
// from spec.Asset.Path by the caller (NodeFactory); Reset is invoked here.
func NewNamModelNode(spec NodeSpec, ctx ProcessContext, model NamModel) (*NamModelNode, error) {
	if err := model.Reset(ctx.SampleRate, ctx.MaxBlockFrames); err != nil {
		return nil, err
	}

	scale := 1.0
	useInputLevel := spec.BoolParam("useInputLevel", true)

	if useInputLevel {
		if leveler, ok := model.(NamModelLeveler); ok {
			scale = core.DBToLinear(namReferenceDbu - leveler.ExpectedDbu())
		}
	}

	blockCap := max(1, ctx.MaxBlockFrames)

	return &NamModelNode{
		id:           spec.ID,
		gm:           newGainMix(spec),
		model:        model,
		preGainLin:   dbToLin(spec.NumParam("preGainDb", -12)),
		postGainLin:  dbToLin(spec.NumParam("postGainDb", 0)),
		inLimit:      clamp(spec.NumParam("inLimit", 0.90), 0.05, 1.0),
		softclipOn:   spec.BoolParam("softclip", true),
		softclipTanh: spec.BoolParam("softclipTanh", false),
		scale:        scale,
		in32:         make([]float32, blockCap),
		out32:        make([]float32, blockCap),
		wetBuf:       make([]float64, blockCap),
	}, nil
}

func (n *NamModelNode) ID() string   { return n.id }
func (n *NamModelNode) Type() string { return TypeNamModel }

func (n *NamModelNode) Process(in, out []float64, count int) {
	inBuf := n.in32[:count]

	for i := range count {
		x := in[i] * n.scale * n.preGainLin

		if n.softclipOn {
			if n.softclipTanh {
				x = math.Tanh(x)
			} else {
				x = softClip(x)
			}
		}

		inBuf[i] = float32(clamp(x, -n.inLimit, n.inLimit))
	}

	outBuf := n.out32[:count]
	n.model.Process(inBuf, outBuf, count)

	wet := n.wetBuf[:count]
	for i := range count {
		wet[i] = float64(outBuf[i]) * n.postGainLin
	}

	n.gm.applyWetDry(out[:count], in, wet, count)
}
