// Command pedal-dsp is the appliance entrypoint: it owns the audio
// device, the swappable signal chain, and the control-plane listeners.
//
// Configuration is environment-driven (see internal/audioengine.Config);
// the initial signal chain is loaded from a JSON file, defaulting to
// /opt/pedal/config/chain.json (overridable with DSP_CHAIN_CONFIG).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/chain"
	"github.com/pedalworks/dsp-engine/internal/audioengine"
	"github.com/pedalworks/dsp-engine/internal/control"
	"github.com/pedalworks/dsp-engine/internal/persist"
	"github.com/pedalworks/dsp-engine/internal/runtime"
)

// buildProfile is overridden at release build time with
// -ldflags "-X main.buildProfile=release".
var buildProfile = "dev"

const (
	defaultChainConfigPath = "/opt/pedal/config/chain.json"
	defaultControlSocket   = "/tmp/pedal-dsp.sock"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	log.Info("pedal-dsp starting", zap.String("buildProfile", buildProfile))

	cfg := audioengine.DefaultConfig().ApplyEnv()

	if cfg.EnforceRelease && buildProfile != "release" {
		log.Error("refusing to start: non-release build with ENFORCE_RELEASE set")
		return 2
	}

	configPath := envOr("DSP_CHAIN_CONFIG", defaultChainConfigPath)
	store := persist.NewStore(configPath)

	ph := runtime.NewParamHandle()
	applyBootParams(ph, cfg)

	ctx := chain.ProcessContext{
		SampleRate:     cfg.Rate,
		MaxBlockFrames: cfg.Period,
		InputTrimLin:   ph.InputTrimLin,
	}
	builder := chain.NewChainBuilder(chain.NewNodeFactory(nil))
	rt := runtime.NewChainRuntime(builder, ctx)

	bootSpec, err := loadBootSpec(store, cfg.Rate, log)
	if err != nil {
		log.Error("fatal: no usable boot chain", zap.Error(err))
		return 1
	}

	pending, err := rt.Build(bootSpec)
	if err != nil {
		log.Error("fatal: boot chain failed to build", zap.Error(err))
		return 1
	}
	for _, w := range pending.Warnings {
		log.Warn("boot chain warning", zap.String("warning", w))
	}
	rt.Publish(pending)
	rt.Swap()

	engine, err := audioengine.NewEngine(cfg, rt, ph, log)
	if err != nil {
		log.Error("fatal: failed to open audio device", zap.Error(err))
		return 1
	}

	socketPath := envOr("DSP_CONTROL_SOCK", defaultControlSocket)
	ctrl, err := control.NewServer(socketPath, rt, store, cfg.Rate, log)
	if err != nil {
		log.Error("fatal: failed to start control server", zap.Error(err))
		return 1
	}
	go ctrl.Run()
	defer ctrl.Stop()

	trim, err := control.NewTrimUDP(ph, log)
	if err != nil {
		log.Warn("trim udp listener unavailable, continuing without it", zap.Error(err))
	} else {
		go trim.Run()
		defer trim.Stop()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := engine.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fatal: audio engine exited with error", zap.Error(err))
		return 1
	}

	log.Info("pedal-dsp shut down cleanly")
	return 0
}

func applyBootParams(ph *runtime.ParamHandle, cfg audioengine.Config) {
	ph.Passthrough.Store(cfg.Passthrough)
	ph.BypassNam.Store(cfg.BypassNam)
	ph.BypassIr.Store(cfg.BypassIr)
	ph.LogStats.Store(cfg.LogStats)
	ph.LogTiming.Store(cfg.LogTiming)

	if cfg.InputTrimDb != 0 {
		ph.SetInputTrimDb(cfg.InputTrimDb)
	}
	if cfg.OutputGainDb != 0 {
		ph.SetOutputGainDb(cfg.OutputGainDb)
	}
}

// loadBootSpec reads the persisted chain config, falling back to the
// built-in default (both DSP stages disabled) on any read or parse
// failure, per the ConfigError policy.
func loadBootSpec(store *persist.Store, sampleRate int, log *zap.Logger) (*chain.ChainSpec, error) {
	spec, err := store.Load()
	if err != nil {
		log.Warn("no usable boot config, starting with default passthrough chain",
			zap.String("path", store.Path()), zap.Error(err))

		return chain.DefaultChainSpec(sampleRate), nil
	}

	spec.SampleRate = sampleRate

	return spec, nil
}

func newLogger() *zap.Logger {
	if envOr("DSP_LOG_DEV", "") != "" {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}

	log, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}

	return log
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}
