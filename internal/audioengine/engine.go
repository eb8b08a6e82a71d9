//go:build linux

package audioengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/core"
	"github.com/pedalworks/dsp-engine/internal/runtime"
)

// swapPhase tracks the two-period chain-swap declick protocol: a pending
// chain is detected one period before it is actually installed, so the
// outgoing chain's last block can be faded out before the incoming
// chain's first block is faded in.
type swapPhase int

const (
	swapIdle swapPhase = iota
	// swapFadingOut is entered in the period a pending chain is detected;
	// that period still runs the outgoing chain, and its block gets a
	// fade-out applied. The actual install happens at the start of the
	// following period.
	swapFadingOut
)

// Engine runs the realtime capture -> chain -> playback loop described in
// §4.9. Build with NewEngine, then call Run; Run blocks until ctx is
// cancelled or an unrecoverable device error occurs.
type Engine struct {
	cfg    Config
	log    *zap.Logger
	dev    *Device
	rt     *runtime.ChainRuntime
	params *runtime.ParamHandle
	stats  *StatsSink

	counters Counters
	sanity   *captureSanity

	retireWorker *runtime.RetireWorker

	phase          swapPhase
	rampTotal      int
	rampDone       int
	wasPassthrough bool
}

// NewEngine opens and negotiates the audio device and wires the runtime
// components together. It does not start the RT loop.
func NewEngine(cfg Config, rt *runtime.ChainRuntime, params *runtime.ParamHandle, log *zap.Logger) (*Engine, error) {
	dev, err := OpenDevice(cfg.CaptureDevice, cfg.PlaybackDevice, cfg.Rate, cfg.Period, cfg.Periods, cfg.CaptureChannels, cfg.PlaybackChannels)
	if err != nil {
		return nil, fmt.Errorf("audioengine: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		log:    log,
		dev:    dev,
		rt:     rt,
		params: params,
		sanity: newCaptureSanity(dev.Rate, cfg.CaptureSanitySecs, cfg.CaptureSilentPeak),
	}

	e.stats = NewStatsSink(log, &e.counters, e.rt.Retire.FullCount, e.rt.Active, params.LogTiming.Load, cfg.BaselineChainUsMax)
	e.retireWorker = runtime.NewRetireWorker(e.rt.Retire, log)

	return e, nil
}

// Run executes the startup sequence then the steady-state loop until ctx
// is cancelled. It always closes the device before returning.
func (e *Engine) Run(ctx context.Context) error {
	defer e.dev.Close()

	if e.cfg.EnableRT {
		if err := EnableRealtimeScheduling(e.cfg.RTPriority); err != nil {
			e.log.Warn("realtime scheduling unavailable, continuing at default priority", zap.Error(err))
		}

		if err := LockMemory(); err != nil {
			e.log.Warn("mlockall unavailable", zap.Error(err))
		}
	}

	if err := e.dev.Link(); err != nil {
		e.log.Warn("capture/playback link unsupported, continuing unlinked", zap.Error(err))
	}

	primeFrames := (e.cfg.Periods - 1) * e.dev.Period
	if primeFrames > 0 {
		if err := e.dev.PrimePlayback(primeFrames); err != nil {
			return fmt.Errorf("audioengine: prime playback: %w", err)
		}
	}

	go e.retireWorker.Run()
	defer e.retireWorker.Stop()

	if e.cfg.LogStats {
		go e.stats.Run()
		defer e.stats.Stop()
	}

	deadline := time.Duration(float64(e.dev.Period) * 1e9 / float64(e.dev.Rate))

	captureBuf := make([]int32, e.dev.Period*e.dev.CaptureChannels)
	monoBuf := make([]float64, e.dev.Period)
	dspOut := make([]float64, e.dev.Period)
	playbackBuf := make([]int32, e.dev.Period*e.dev.PlaybackChannels)

	running := func() bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	for running() {
		// With crossfade enabled, a pending chain is detected one period
		// before it is installed: this period still runs the outgoing
		// chain (faded out below, after processBlock) and the actual
		// swap happens next period. Without crossfade, install the
		// instant a chain is pending, as before.
		doSwap := true

		if e.cfg.ChainXfade {
			doSwap = false

			switch e.phase {
			case swapIdle:
				if e.rt.HasPending() {
					e.phase = swapFadingOut
				}
			case swapFadingOut:
				doSwap = true
			}
		}

		if doSwap {
			result := e.rt.Swap()

			if result.Swapped {
				e.counters.ChainSwaps.Add(1)
				e.phase = swapIdle

				if e.cfg.ChainXfade {
					e.rampTotal = e.cfg.SwapRampSamples
					e.rampDone = 0
				}
			}

			if result.RetireFull {
				e.counters.RetireFull.Add(1)
			}
		}

		if err := e.dev.ReadCapture(captureBuf, e.dev.Period, running); err != nil {
			return fmt.Errorf("audioengine: capture: %w", err)
		}

		downmixCaptureToMono(captureBuf, e.dev.CaptureChannels, e.dev.Period, monoBuf)

		if e.sanity.observe(monoBuf) {
			e.log.Warn("capture signal suspiciously quiet during startup window",
				zap.Float64("peak", e.sanity.peakLevel()), zap.Float64("rms", e.sanity.rms()))
		}

		e.processBlock(monoBuf, dspOut, deadline)

		if e.cfg.ChainXfade && e.phase == swapFadingOut && !doSwap {
			applyFadeOut(dspOut, e.cfg.SwapRampSamples)
		}

		if e.cfg.DenormalsOff {
			for i, v := range dspOut {
				dspOut[i] = core.FlushDenormals(v)
			}
		}

		if e.rampTotal > 0 {
			e.rampDone += applyFadeIn(dspOut, e.rampTotal, e.rampDone)
			if e.rampDone >= e.rampTotal {
				e.rampTotal = 0
				e.rampDone = 0
			}
		}

		applyOutputGain(dspOut, e.params.OutputGainLin.Load())
		sanitizeAndClamp(dspOut)
		interleavePlayback(dspOut, e.dev.PlaybackChannels, playbackBuf)

		if err := e.dev.WriteToPlayback(playbackBuf, e.dev.Period); err != nil {
			return fmt.Errorf("audioengine: playback: %w", err)
		}
	}

	return nil
}

func (e *Engine) processBlock(in, out []float64, deadline time.Duration) {
	active := e.rt.Active()
	passthrough := e.params.Passthrough.Load() || active == nil

	if active != nil {
		active.SetBypassNam(e.params.BypassNam.Load())
		active.SetBypassIr(e.params.BypassIr.Load())
		active.SetTimingEnabled(e.cfg.NodeTiming)
	}

	if passthrough != e.wasPassthrough {
		applyFadeOut(in, e.cfg.SwapRampSamples)
		e.rampTotal = e.cfg.SwapRampSamples
		e.rampDone = 0
	}
	e.wasPassthrough = passthrough

	if passthrough {
		copy(out, in)
		return
	}

	start := time.Now()
	active.Process(in, out, len(in))
	elapsed := time.Since(start)

	if e.stats != nil {
		e.stats.RecordChainTime(elapsed)
	}

	if elapsed > deadline {
		e.counters.Overruns.Add(1)
	}
}
