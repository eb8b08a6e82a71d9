package control

import (
	"testing"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/internal/runtime"
)

func TestTrimUDPHandleUpdatesParamHandle(t *testing.T) {
	ph := runtime.NewParamHandle()
	tu := &TrimUDP{params: ph, log: zap.NewNop()}

	tu.handle("TRIM_DB -6\n")

	got := ph.InputTrimLin.Load()
	if got <= 0 || got >= 1 {
		t.Fatalf("expected a linear trim below unity for a negative dB value, got %v", got)
	}
}

func TestTrimUDPHandleClampsOutOfRangeValue(t *testing.T) {
	ph := runtime.NewParamHandle()
	tu := &TrimUDP{params: ph, log: zap.NewNop()}

	tu.handle("TRIM_DB 999")

	// +24dB clamp -> lin = 10^(24/20)
	got := ph.InputTrimLin.Load()
	if got < 15 || got > 16 {
		t.Fatalf("expected trim clamped near 10^1.2 (~15.85), got %v", got)
	}
}

func TestTrimUDPHandleIgnoresUnrecognizedMessage(t *testing.T) {
	ph := runtime.NewParamHandle()
	tu := &TrimUDP{params: ph, log: zap.NewNop()}

	before := ph.InputTrimLin.Load()
	tu.handle("HELLO WORLD")

	if got := ph.InputTrimLin.Load(); got != before {
		t.Fatalf("trim changed on unrecognized message: %v -> %v", before, got)
	}
}
