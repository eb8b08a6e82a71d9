package audioengine

import (
	"os"
	"strconv"
)

// Config is the engine's boot configuration, populated from defaults and
// then overridden by the environment knobs listed in the external
// interfaces (§6). Read with the standard library the way the teacher
// reads flags in its cmd/wininfo entrypoint — no config framework in the
// retrieved pack, so this stays on stdlib (see DESIGN.md).
type Config struct {
	CaptureDevice  string
	PlaybackDevice string

	Rate             int
	Period           int
	Periods          int
	CaptureChannels  int
	PlaybackChannels int

	EnableRT       bool
	RTPriority     int
	DenormalsOff   bool
	EnforceRelease bool

	Passthrough bool
	BypassNam   bool
	BypassIr    bool

	InputTrimDb  float64
	OutputGainDb float64

	IrMaxSamples int

	ChainXfade      bool
	SwapRampSamples int

	BaselineChainUsMax int64
	CaptureSanitySecs  float64
	CaptureSilentPeak  float64

	LogStats   bool
	LogTiming  bool
	NodeTiming bool
}

// DefaultConfig returns the engine's built-in defaults, matching the
// external interfaces table (§6).
func DefaultConfig() Config {
	return Config{
		CaptureDevice:      "default",
		PlaybackDevice:     "default",
		Rate:               48000,
		Period:             128,
		Periods:            3,
		CaptureChannels:    1,
		PlaybackChannels:   2,
		EnableRT:           true,
		RTPriority:         defaultRTPriority,
		DenormalsOff:       true,
		EnforceRelease:     true,
		SwapRampSamples:    defaultSwapRampSamples,
		CaptureSanitySecs:  5,
		CaptureSilentPeak:  0.01,
	}
}

// ApplyEnv overrides cfg's fields from the environment knobs named in §6,
// leaving unset variables untouched.
func (cfg Config) ApplyEnv() Config {
	envInt(&cfg.Rate, "RATE")
	envInt(&cfg.Period, "PERIOD")
	envInt(&cfg.Periods, "PERIODS")
	envInt(&cfg.CaptureChannels, "CAPTURE_CHANNELS")
	envInt(&cfg.PlaybackChannels, "PLAYBACK_CHANNELS")
	envBool(&cfg.EnableRT, "ENABLE_RT")
	envInt(&cfg.RTPriority, "ALSA_RT_PRIORITY")
	envInt(&cfg.RTPriority, "RT_PRIORITY")
	envBool(&cfg.DenormalsOff, "DENORMALS_OFF")
	envBool(&cfg.EnforceRelease, "ENFORCE_RELEASE")
	envBool(&cfg.Passthrough, "PASSTHROUGH")
	envBool(&cfg.BypassNam, "BYPASS_NAM")
	envBool(&cfg.BypassIr, "BYPASS_IR")
	envFloat(&cfg.InputTrimDb, "INPUT_TRIM_DB")
	envFloat(&cfg.OutputGainDb, "OUTPUT_GAIN_DB")
	envInt(&cfg.IrMaxSamples, "IR_MAX_SAMPLES")
	envBool(&cfg.ChainXfade, "CHAIN_XFADE")
	envInt(&cfg.SwapRampSamples, "SWAP_RAMP_SAMPLES")
	envInt64(&cfg.BaselineChainUsMax, "BASELINE_CHAIN_US_MAX")
	envFloat(&cfg.CaptureSanitySecs, "CAPTURE_SANITY_SECS")
	envFloat(&cfg.CaptureSilentPeak, "CAPTURE_SILENT_PEAK")
	envBool(&cfg.LogStats, "LOG_STATS")
	envBool(&cfg.LogTiming, "LOG_TIMING")
	envBool(&cfg.NodeTiming, "NODE_TIMING")

	return cfg
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}

	*dst = n
}

func envInt64(dst *int64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}

	*dst = n
}

func envFloat(dst *float64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}

	*dst = f
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return
	}

	*dst = b
}
