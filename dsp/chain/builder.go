package chain

import "fmt"

// BuildResult is the outcome of a successful ChainBuilder.Build call.
type BuildResult struct {
	Chain    *SignalChain
	Warnings []string
}

// ChainBuilder validates a ChainSpec and turns it into a runnable
// SignalChain, using a NodeFactory to construct each node.
type ChainBuilder struct {
	factory *NodeFactory
}

// NewChainBuilder builds a ChainBuilder backed by factory.
func NewChainBuilder(factory *NodeFactory) *ChainBuilder {
	return &ChainBuilder{factory: factory}
}

// Build validates spec, constructs every node via the factory, and wires
// them into a SignalChain sized to ctx.MaxBlockFrames.
//
// seedInputTrim should be true only for the very first chain built by a
// given runtime instance; see NewInputNode.
func (b *ChainBuilder) Build(spec *ChainSpec, ctx ProcessContext, seedInputTrim bool) (BuildResult, error) {
	if err := Validate(spec); err != nil {
		return BuildResult{}, err
	}

	nodes := make([]Node, 0, len(spec.Chain))
	warnings := make([]string, 0)

	for _, nodeSpec := range spec.Chain {
		node, warning, err := b.factory.Build(nodeSpec, ctx, seedInputTrim)
		if err != nil {
			return BuildResult{}, fmt.Errorf("chain: build node %q: %w", nodeSpec.ID, err)
		}

		if warning != "" {
			warnings = append(warnings, warning)
		}

		nodes = append(nodes, node)
	}

	sc := NewSignalChain(nodes, ctx.MaxBlockFrames)
	if err := sc.checkBuilt(); err != nil {
		return BuildResult{}, err
	}

	return BuildResult{Chain: sc, Warnings: warnings}, nil
}
