package audioengine

import (
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/chain"
)

// Counters are the running totals the periodic stats line summarizes.
// Every field is a plain atomic so both the audio thread (writer) and the
// stats goroutine (reader) touch it without locks.
type Counters struct {
	Xruns      atomic.Uint64
	ShortReads atomic.Uint64
	ChainSwaps atomic.Uint64
	Overruns   atomic.Uint64
	RetireFull atomic.Uint64
}

// chainTimeSample is a bounded ring of recent chain processing durations,
// used to compute rough percentiles for the stats line without unbounded
// memory growth.
type chainTimeSample struct {
	buf   []int64
	pos   int
	count int
}

func newChainTimeSample(capacity int) *chainTimeSample {
	return &chainTimeSample{buf: make([]int64, capacity)}
}

func (s *chainTimeSample) add(ns int64) {
	s.buf[s.pos] = ns
	s.pos = (s.pos + 1) % len(s.buf)

	if s.count < len(s.buf) {
		s.count++
	}
}

func (s *chainTimeSample) percentile(p float64) int64 {
	if s.count == 0 {
		return 0
	}

	sorted := make([]int64, s.count)
	copy(sorted, s.buf[:s.count])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p * float64(len(sorted)-1))

	return sorted[idx]
}

func (s *chainTimeSample) max() int64 {
	var m int64
	for i := range s.count {
		if s.buf[i] > m {
			m = s.buf[i]
		}
	}

	return m
}

// StatsSink periodically logs a summary line: xrun/short counts, chain
// swaps, chain timing percentiles, per-node-type maxima, and (if
// configured) a pass/fail line against a baseline microsecond budget.
type StatsSink struct {
	log       *zap.Logger
	counters  *Counters
	samples   *chainTimeSample
	retire    func() uint64
	active    func() *chain.SignalChain
	logTiming func() bool

	baselineUs int64
	interval   time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewStatsSink builds a sink. baselineUs <= 0 disables the pass/fail line
// (unset BASELINE_CHAIN_US_MAX). logTiming gates whether the per-node-type
// timing fields (collected only when NODE_TIMING enabled the chain's own
// bucketing) are actually written into the stats line; this is the
// LOG_TIMING knob's read site.
func NewStatsSink(log *zap.Logger, counters *Counters, retireFullCount func() uint64, active func() *chain.SignalChain, logTiming func() bool, baselineUs int64) *StatsSink {
	return &StatsSink{
		log:        log,
		counters:   counters,
		samples:    newChainTimeSample(512),
		retire:     retireFullCount,
		active:     active,
		logTiming:  logTiming,
		baselineUs: baselineUs,
		interval:   2 * time.Second,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// RecordChainTime feeds one block's chain processing duration into the
// rolling sample window. Called from the audio thread; must stay
// allocation-free (the ring buffer is preallocated).
func (s *StatsSink) RecordChainTime(d time.Duration) {
	s.samples.add(d.Nanoseconds())
}

// Run emits a summary line every 2 seconds until Stop is called.
func (s *StatsSink) Run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.emit()
		}
	}
}

// Stop halts the sink's goroutine and blocks until it has exited.
func (s *StatsSink) Stop() {
	close(s.stop)
	<-s.done
}

func (s *StatsSink) emit() {
	fields := []zap.Field{
		zap.Uint64("xruns", s.counters.Xruns.Load()),
		zap.Uint64("shortReads", s.counters.ShortReads.Load()),
		zap.Uint64("chainSwaps", s.counters.ChainSwaps.Load()),
		zap.Uint64("overruns", s.counters.Overruns.Load()),
		zap.Uint64("retireQFull", s.retire()),
		zap.Int64("chainUsP50", s.samples.percentile(0.5)/1000),
		zap.Int64("chainUsP95", s.samples.percentile(0.95)/1000),
		zap.Int64("chainUsMax", s.samples.max()/1000),
	}

	if s.logTiming() {
		if sc := s.active(); sc != nil {
			for typ, t := range sc.TimingSnapshot() {
				fields = append(fields, zap.Int64("nodeMaxUs_"+typ, t.MaxNs/1000))
			}
		}
	}

	if s.baselineUs > 0 {
		maxUs := s.samples.max() / 1000
		fields = append(fields, zap.Bool("baselinePass", maxUs <= s.baselineUs), zap.Int64("baselineUsMax", s.baselineUs))
	}

	s.log.Info("pedal-dsp stats", fields...)
}
