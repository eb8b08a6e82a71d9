package control

import "github.com/pedalworks/dsp-engine/dsp/chain"

// ParamDescriptor documents one node parameter for list_types.
type ParamDescriptor struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Min     any    `json:"min,omitempty"`
	Max     any    `json:"max,omitempty"`
	Default any    `json:"default"`
}

// TypeDescriptor documents one node type for list_types. Type is the
// node's discriminator value (e.g. "nam_model"), matching the original
// engine's signal_chain_nodes.cpp manifest shape so that a client can
// navigate types.types[?(@.type=='nam_model')].params.
type TypeDescriptor struct {
	Type          string            `json:"type"`
	Category      string            `json:"category"`
	RequiresAsset bool              `json:"requiresAsset"`
	Params        []ParamDescriptor `json:"params"`
}

// TypesManifest is the versioned envelope list_types wraps its type list
// in, mirroring {version, types: [...]}.
type TypesManifest struct {
	Version int              `json:"version"`
	Types   []TypeDescriptor `json:"types"`
}

const manifestVersion = 1

// Manifest is the static list_types response body: an ordered list of
// node type descriptors.
var Manifest = TypesManifest{
	Version: manifestVersion,
	Types: []TypeDescriptor{
		{
			Type:     chain.TypeInput,
			Category: "io",
			Params: []ParamDescriptor{
				{Key: "inputTrimDb", Type: "number", Min: -24, Max: 24, Default: 0},
				{Key: "levelDb", Type: "number", Min: -48, Max: 24, Default: 0},
				{Key: "mix", Type: "number", Min: 0, Max: 1, Default: 1},
			},
		},
		{
			Type:     chain.TypeOutput,
			Category: "io",
			Params: []ParamDescriptor{
				{Key: "levelDb", Type: "number", Min: -48, Max: 24, Default: 0},
				{Key: "mix", Type: "number", Min: 0, Max: 1, Default: 1},
			},
		},
		{
			Type:     chain.TypeOverdrive,
			Category: "effect",
			Params: []ParamDescriptor{
				{Key: "enabled", Type: "bool", Default: true},
				{Key: "drive", Type: "number", Min: 0, Max: 1, Default: 0.5},
				{Key: "tone", Type: "number", Min: 0, Max: 1, Default: 0.5},
				{Key: "levelDb", Type: "number", Min: -48, Max: 24, Default: 0},
				{Key: "mix", Type: "number", Min: 0, Max: 1, Default: 1},
			},
		},
		{
			Type:          chain.TypeNamModel,
			Category:      "amp",
			RequiresAsset: true,
			Params: []ParamDescriptor{
				{Key: "enabled", Type: "bool", Default: true},
				{Key: "mix", Type: "number", Min: 0, Max: 1, Default: 1},
				{Key: "levelDb", Type: "number", Min: -48, Max: 24, Default: 0},
				{Key: "preGainDb", Type: "number", Min: -24, Max: 24, Default: -12},
				{Key: "postGainDb", Type: "number", Min: -24, Max: 24, Default: 0},
				{Key: "inLimit", Type: "number", Min: 0.05, Max: 1, Default: 0.9},
				{Key: "softclip", Type: "bool", Default: true},
				{Key: "softclipTanh", Type: "bool", Default: false},
				{Key: "useInputLevel", Type: "bool", Default: true},
			},
		},
		{
			Type:          chain.TypeIrConvolver,
			Category:      "cab",
			RequiresAsset: true,
			Params: []ParamDescriptor{
				{Key: "enabled", Type: "bool", Default: true},
				{Key: "mix", Type: "number", Min: 0, Max: 1, Default: 1},
				{Key: "levelDb", Type: "number", Min: -48, Max: 24, Default: 0},
				{Key: "gainDb", Type: "number", Min: -24, Max: 24, Default: 0},
				{Key: "targetDb", Type: "number"},
				{Key: "maxSamples", Type: "number"},
				{Key: "maxMs", Type: "number"},
			},
		},
	},
}
