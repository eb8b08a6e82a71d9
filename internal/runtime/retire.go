package runtime

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/chain"
)

const (
	retireRingSize    = 128
	retireDrainPeriod = 10 * time.Millisecond
)

// RetireQueue is a bounded single-producer/single-consumer handoff for
// SignalChains the audio thread has replaced and can no longer touch.
// Destroying a chain (releasing FFT plans, IR buffers, model handles) is
// forbidden on the audio thread; this queue is the only path off it.
type RetireQueue struct {
	ch        chan *chain.SignalChain
	fullCount atomic.Uint64
}

// NewRetireQueue builds a queue with the standard retire ring capacity.
func NewRetireQueue() *RetireQueue {
	return &RetireQueue{ch: make(chan *chain.SignalChain, retireRingSize)}
}

// Offer hands sc off for destruction. It never blocks: on a full ring it
// returns false and bumps FullCount, and the audio thread must defer the
// swap to the next period rather than destroy sc itself.
func (q *RetireQueue) Offer(sc *chain.SignalChain) bool {
	if sc == nil {
		return true
	}

	select {
	case q.ch <- sc:
		return true
	default:
		q.fullCount.Add(1)
		return false
	}
}

// FullCount returns the number of times Offer found the ring full.
func (q *RetireQueue) FullCount() uint64 {
	return q.fullCount.Load()
}

// RetireWorker is the single background thread that drains a RetireQueue.
type RetireWorker struct {
	queue *RetireQueue
	log   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewRetireWorker builds a worker over queue. Call Run in its own
// goroutine, then Stop to drain and join on shutdown.
func NewRetireWorker(queue *RetireQueue, log *zap.Logger) *RetireWorker {
	return &RetireWorker{queue: queue, log: log, stop: make(chan struct{}), done: make(chan struct{})}
}

// Run drains the queue every 10ms until Stop is called, then drains to
// completion before returning. Intended to run in its own goroutine.
func (w *RetireWorker) Run() {
	defer close(w.done)

	ticker := time.NewTicker(retireDrainPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			w.drain()
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// Stop signals the worker to drain the remaining queue and blocks until it
// has done so.
func (w *RetireWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *RetireWorker) drain() {
	for {
		select {
		case sc := <-w.queue.ch:
			w.retireOne(sc)
		default:
			return
		}
	}
}

func (w *RetireWorker) retireOne(sc *chain.SignalChain) {
	if sc == nil {
		return
	}

	if w.log != nil {
		w.log.Debug("chain retired", zap.Int("nodes", len(sc.Nodes())))
	}
}
