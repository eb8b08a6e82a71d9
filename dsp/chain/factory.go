package chain

import (
	"fmt"

	"github.com/pedalworks/dsp-engine/dsp/convolver"
	"github.com/pedalworks/dsp-engine/dsp/irloader"
)

// NamModelLoader loads a NamModel from an asset path. Supplied by the
// caller (cmd/pedal-dsp) since the inference library itself is out of
// scope here.
type NamModelLoader func(path string) (NamModel, error)

// NodeFactory builds Node instances from NodeSpecs, performing whatever
// non-realtime, allocation-heavy or error-prone construction work a node
// needs (asset loading, IR shaping, FFT plan setup) up front. It never
// runs on the audio thread.
type NodeFactory struct {
	loadNamModel NamModelLoader
	loadIR       func(path string) (irloader.Result, error)
}

// NewNodeFactory builds a NodeFactory. loadNamModel may be nil (e.g. in
// tests); a nam_model node that is disabled or has no asset still builds
// as a passthrough, but an enabled nam_model node with an asset is then a
// hard error.
func NewNodeFactory(loadNamModel NamModelLoader) *NodeFactory {
	return &NodeFactory{loadNamModel: loadNamModel, loadIR: irloader.Load}
}

// Build constructs the Node for one NodeSpec. seedFromSpec is forwarded to
// InputNode; it has no effect on other node types. On success it returns
// the node and any non-fatal warning (e.g. a missing asset fell back to
// passthrough); on failure the chain build must abort.
func (f *NodeFactory) Build(spec NodeSpec, ctx ProcessContext, seedFromSpec bool) (Node, string, error) {
	switch spec.Type {
	case TypeInput:
		return NewInputNode(spec, ctx, seedFromSpec), "", nil

	case TypeOutput:
		return NewOutputNode(spec), "", nil

	case TypeOverdrive:
		return withBypass(spec, NewOverdriveNode(spec, ctx)), "", nil

	case TypeNamModel:
		return f.buildNamModel(spec, ctx)

	case TypeIrConvolver:
		return f.buildIrConvolver(spec, ctx)

	default:
		return nil, "", fmt.Errorf("chain: unknown node type %q (id=%q)", spec.Type, spec.ID)
	}
}

func (f *NodeFactory) buildNamModel(spec NodeSpec, ctx ProcessContext) (Node, string, error) {
	if !nodeEnabled(spec) || spec.Asset == nil || spec.Asset.Path == "" {
		return NewPassthroughNode(spec, TypeNamModel), namModelSkippedWarning(spec), nil
	}

	if f.loadNamModel == nil {
		return nil, "", fmt.Errorf("chain: node %q: nam_model requested but no loader configured", spec.ID)
	}

	model, err := f.loadNamModel(spec.Asset.Path)
	if err != nil {
		return nil, "", fmt.Errorf("chain: node %q: load nam model %s: %w", spec.ID, spec.Asset.Path, err)
	}

	node, err := NewNamModelNode(spec, ctx, model)
	if err != nil {
		return nil, "", fmt.Errorf("chain: node %q: init nam model: %w", spec.ID, err)
	}

	return withBypass(spec, node), "", nil
}

func (f *NodeFactory) buildIrConvolver(spec NodeSpec, ctx ProcessContext) (Node, string, error) {
	if !nodeEnabled(spec) || spec.Asset == nil || spec.Asset.Path == "" {
		return NewPassthroughNode(spec, TypeIrConvolver), irConvolverSkippedWarning(spec), nil
	}

	result, err := f.loadIR(spec.Asset.Path)
	if err != nil {
		return nil, "", fmt.Errorf("chain: node %q: load impulse response %s: %w", spec.ID, spec.Asset.Path, err)
	}

	if result.SampleRate != ctx.SampleRate {
		return nil, "", fmt.Errorf(
			"chain: node %q: impulse response sample rate %d does not match engine sample rate %d",
			spec.ID, result.SampleRate, ctx.SampleRate,
		)
	}

	shaped, warning := shapeIR(result.Mono, result.SampleRate, spec)

	conv := convolver.New()
	if err := conv.Init(shaped, ctx.MaxBlockFrames); err != nil {
		return nil, "", fmt.Errorf("chain: node %q: init convolver: %w", spec.ID, err)
	}

	node := NewIrConvolverNode(spec, ctx, conv)

	return withBypass(spec, node), warning, nil
}

func namModelSkippedWarning(spec NodeSpec) string {
	if !nodeEnabled(spec) {
		return fmt.Sprintf("node %q: nam_model disabled, using passthrough", spec.ID)
	}

	return fmt.Sprintf("node %q: nam_model has no asset, using passthrough", spec.ID)
}

func irConvolverSkippedWarning(spec NodeSpec) string {
	if !nodeEnabled(spec) {
		return fmt.Sprintf("node %q: ir_convolver disabled, using passthrough", spec.ID)
	}

	return fmt.Sprintf("node %q: ir_convolver has no asset, using passthrough", spec.ID)
}
