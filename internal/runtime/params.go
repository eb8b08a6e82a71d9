// Package runtime owns the process-wide mutable state that sits between
// the control plane and the audio thread: the swappable signal chain and
// the grouped scalar parameter atomics every subsystem reads or writes.
package runtime

import (
	"sync/atomic"

	"github.com/pedalworks/dsp-engine/dsp/chain"
	"github.com/pedalworks/dsp-engine/dsp/core"
)

// ParamHandle groups every process-wide atomic parameter cell into one
// immutable handle constructed once at boot. Each subsystem (ControlServer,
// TrimUdp, AudioEngine) receives a pointer to the same handle rather than
// touching package-level globals.
type ParamHandle struct {
	InputTrimLin  *chain.TrimCell
	OutputGainLin *chain.TrimCell

	Passthrough atomic.Bool
	BypassNam   atomic.Bool
	BypassIr    atomic.Bool
	LogStats    atomic.Bool
	LogTiming   atomic.Bool
}

// NewParamHandle builds a handle with unity trim/gain and every flag off.
func NewParamHandle() *ParamHandle {
	return &ParamHandle{
		InputTrimLin:  chain.NewTrimCell(1),
		OutputGainLin: chain.NewTrimCell(1),
	}
}

// SetInputTrimDb updates the trim cell from a dB value, clamped to
// [-24, +24] per the trim datagram's accepted range.
func (h *ParamHandle) SetInputTrimDb(db float64) {
	db = core.Clamp(db, -24, 24)

	h.InputTrimLin.Store(core.DBToLinear(db))
}

// SetOutputGainDb updates the output gain cell from a dB value.
func (h *ParamHandle) SetOutputGainDb(db float64) {
	h.OutputGainLin.Store(core.DBToLinear(db))
}
