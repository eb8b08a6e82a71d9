package chain

// PassthroughNode copies input to output verbatim. It is what NodeFactory
// substitutes for a NamModel or IrConvolver node whose asset is missing or
// which was built with enabled=false, so a malformed chain never silences
// the signal outright.
type PassthroughNode struct {
	id      string
	typ     string
	enabled bool
	gm      gainMix
}

// NewPassthroughNode builds a passthrough standing in for typ.
func NewPassthroughNode(spec NodeSpec, typ string) *PassthroughNode {
	return &PassthroughNode{id: spec.ID, typ: typ, enabled: nodeEnabled(spec), gm: newGainMix(spec)}
}

func (n *PassthroughNode) ID() string   { return n.id }
func (n *PassthroughNode) Type() string { return n.typ }

func (n *PassthroughNode) Process(in, out []float64, count int) {
	copy(out[:count], in[:count])
}
