package chain

import (
	"encoding/json"
	"fmt"
)

// ValidationError is returned by Validate when a ChainSpec violates one of
// the chain invariants (§3). Its Message is the exact text surfaced to
// control-protocol clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// legacyChainSpec is the deprecated shape accepted alongside canonical v1.
type legacyChainSpec struct {
	Audio *struct {
		InputTrimDb float64 `json:"inputTrimDb"`
		SampleRate  int     `json:"sampleRate"`
	} `json:"audio"`
	Chain *struct {
		NamModelPath string `json:"namModelPath"`
		IrPath       string `json:"irPath"`
	} `json:"chain"`
	Debug *struct {
		Passthrough bool `json:"passthrough"`
	} `json:"debug"`
}

// isLegacyShape reports whether raw looks like the legacy object shape
// (an "audio" object) rather than canonical v1 (a "chain" array).
func isLegacyShape(raw []byte) bool {
	var probe struct {
		Audio json.RawMessage `json:"audio"`
		Chain json.RawMessage `json:"chain"`
	}

	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}

	if probe.Audio == nil {
		return false
	}

	if len(probe.Chain) == 0 {
		return true
	}

	// Canonical v1's "chain" field is a JSON array; legacy's is an object.
	trimmed := probe.Chain
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}

	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Parse decodes raw JSON into a ChainSpec, accepting either the canonical
// v1 shape or the legacy shape (rewritten to canonical form on the way
// in). It does not validate; call Validate separately.
func Parse(raw []byte) (*ChainSpec, error) {
	if isLegacyShape(raw) {
		return parseLegacy(raw)
	}

	var spec ChainSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, validationErrorf("invalid chain json: %v", err)
	}

	return &spec, nil
}

func parseLegacy(raw []byte) (*ChainSpec, error) {
	var legacy legacyChainSpec
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, validationErrorf("invalid legacy chain json: %v", err)
	}

	spec := &ChainSpec{Version: 1}

	if legacy.Audio != nil {
		spec.SampleRate = legacy.Audio.SampleRate
	}

	inputTrim := 0.0
	if legacy.Audio != nil {
		inputTrim = legacy.Audio.InputTrimDb
	}

	spec.Chain = append(spec.Chain, NodeSpec{
		ID: "input", Type: TypeInput, Category: "utility", Enabled: true,
		Params: map[string]any{"inputTrimDb": inputTrim},
	})

	if legacy.Chain != nil && legacy.Chain.NamModelPath != "" {
		spec.Chain = append(spec.Chain, NodeSpec{
			ID: "amp1", Type: TypeNamModel, Category: "amp", Enabled: true,
			Asset: &Asset{Path: legacy.Chain.NamModelPath},
		})
	}

	if legacy.Chain != nil && legacy.Chain.IrPath != "" {
		spec.Chain = append(spec.Chain, NodeSpec{
			ID: "cab1", Type: TypeIrConvolver, Category: "cab", Enabled: true,
			Asset: &Asset{Path: legacy.Chain.IrPath},
		})
	}

	outputEnabled := true
	if legacy.Debug != nil && legacy.Debug.Passthrough {
		// The legacy debug.passthrough flag is read but does not change the
		// rewritten chain: the output node stays enabled and the flag is not
		// carried into the returned ChainSpec.
		outputEnabled = true
	}

	spec.Chain = append(spec.Chain, NodeSpec{
		ID: "output", Type: TypeOutput, Category: "utility", Enabled: outputEnabled,
	})

	return spec, nil
}

// Validate enforces the chain invariants from §3. On success it returns
// nil; the *ChainSpec is unchanged.
func Validate(spec *ChainSpec) error {
	if spec == nil {
		return validationErrorf("chain spec is nil")
	}

	if spec.Version != 1 {
		return validationErrorf("unsupported chain version: %d", spec.Version)
	}

	if len(spec.Chain) == 0 {
		return validationErrorf("chain must contain at least one node")
	}

	if err := validateIDs(spec.Chain); err != nil {
		return err
	}

	if spec.Chain[0].Type != TypeInput {
		return validationErrorf("first node must be of type 'input'")
	}

	if spec.Chain[len(spec.Chain)-1].Type != TypeOutput {
		return validationErrorf("last node must be of type 'output'")
	}

	namIdx := firstIndexOfType(spec.Chain, TypeNamModel)
	if namIdx < 0 {
		return validationErrorf("Chain must contain a 'nam_model' node")
	}

	irIdx := firstIndexOfType(spec.Chain, TypeIrConvolver)
	if irIdx < 0 {
		return validationErrorf("Chain must contain an 'ir_convolver' node")
	}

	if namIdx > irIdx {
		return validationErrorf("Invalid ordering: 'nam_model' must appear before 'ir_convolver'")
	}

	return nil
}

func validateIDs(nodes []NodeSpec) error {
	seen := make(map[string]struct{}, len(nodes))

	for _, n := range nodes {
		if n.ID == "" {
			return validationErrorf("node id must not be empty")
		}

		if _, dup := seen[n.ID]; dup {
			return validationErrorf("duplicate node id: %q", n.ID)
		}

		seen[n.ID] = struct{}{}
	}

	return nil
}

func firstIndexOfType(nodes []NodeSpec, typ string) int {
	for i, n := range nodes {
		if n.Type == typ {
			return i
		}
	}

	return -1
}

// ToJSON serializes spec back to canonical v1 form, pretty-printed.
func ToJSON(spec *ChainSpec) ([]byte, error) {
	if spec.Version == 0 {
		spec = &ChainSpec{Version: 1, SampleRate: spec.SampleRate, Chain: spec.Chain}
	}

	return json.MarshalIndent(spec, "", "  ")
}

// DefaultChainSpec is the built-in boot-fallback chain: Input, NamModel
// and IrConvolver both disabled (no asset configured), Output. It
// satisfies Validate (ordering is checked regardless of enabled state)
// and passes audio through at unity gain.
func DefaultChainSpec(sampleRate int) *ChainSpec {
	return &ChainSpec{
		Version:    1,
		SampleRate: sampleRate,
		Chain: []NodeSpec{
			{ID: "input", Type: TypeInput, Category: "utility", Enabled: true},
			{ID: "amp1", Type: TypeNamModel, Category: "amp", Enabled: false},
			{ID: "cab1", Type: TypeIrConvolver, Category: "cab", Enabled: false},
			{ID: "output", Type: TypeOutput, Category: "utility", Enabled: true},
		},
	}
}
