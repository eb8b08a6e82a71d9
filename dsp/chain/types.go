package chain

import "math"

// Node type identifiers recognized by NodeFactory.
const (
	TypeInput       = "input"
	TypeOutput      = "output"
	TypeOverdrive   = "overdrive"
	TypeNamModel    = "nam_model"
	TypeIrConvolver = "ir_convolver"
)

// Asset references a file on disk required by a node (a NAM model or an
// impulse response).
type Asset struct {
	Path string `json:"path"`
}

// NodeSpec is an immutable description of one chain element, as parsed
// from JSON.
type NodeSpec struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Category string         `json:"category,omitempty"`
	Enabled  bool           `json:"enabled"`
	Params   map[string]any `json:"params,omitempty"`
	Asset    *Asset         `json:"asset,omitempty"`
}

// NumParam extracts a numeric parameter, returning def if missing,
// non-numeric, or non-finite. Bools are accepted and coerced to 0/1, since
// the wire format allows a bool or a number for any parameter.
func (n NodeSpec) NumParam(key string, def float64) float64 {
	v, ok := n.Params[key]
	if !ok {
		return def
	}

	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return def
		}

		return t
	case bool:
		if t {
			return 1
		}

		return 0
	default:
		return def
	}
}

// BoolParam extracts a boolean parameter, returning def if missing or of
// the wrong type. A nonzero number is treated as true.
func (n NodeSpec) BoolParam(key string, def bool) bool {
	v, ok := n.Params[key]
	if !ok {
		return def
	}

	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return def
	}
}

// StrParam extracts a string parameter, returning def if missing or of the
// wrong type.
func (n NodeSpec) StrParam(key string, def string) string {
	v, ok := n.Params[key]
	if !ok {
		return def
	}

	s, ok := v.(string)
	if !ok {
		return def
	}

	return s
}

// ChainSpec is an ordered, validated description of a signal chain.
type ChainSpec struct {
	Version    int        `json:"version"`
	SampleRate int        `json:"sampleRate,omitempty"`
	Chain      []NodeSpec `json:"chain"`
}

// Clone returns a deep copy of the spec, safe to mutate independently of
// the original (e.g. to force the engine's negotiated sample rate).
func (s ChainSpec) Clone() ChainSpec {
	out := ChainSpec{Version: s.Version, SampleRate: s.SampleRate}
	out.Chain = make([]NodeSpec, len(s.Chain))

	for i, n := range s.Chain {
		nc := n
		if n.Params != nil {
			nc.Params = make(map[string]any, len(n.Params))
			for k, v := range n.Params {
				nc.Params[k] = v
			}
		}

		if n.Asset != nil {
			a := *n.Asset
			nc.Asset = &a
		}

		out.Chain[i] = nc
	}

	return out
}
