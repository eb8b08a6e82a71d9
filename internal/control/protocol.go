package control

import "github.com/pedalworks/dsp-engine/dsp/chain"

// maxRequestBytes bounds a single line-delimited JSON request.
const maxRequestBytes = 1 << 20

type request struct {
	Cmd   string           `json:"cmd"`
	Chain *chain.ChainSpec `json:"chain,omitempty"`
}

type response struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Warning string           `json:"warning,omitempty"`
	Types   *TypesManifest   `json:"types,omitempty"`
	Chain   *chain.ChainSpec `json:"chain,omitempty"`
}

func errResponse(msg string) response {
	return response{OK: false, Error: msg}
}

func okResponse() response {
	return response{OK: true}
}
