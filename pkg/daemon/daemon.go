// Package daemon provides the background worker framework driving
// asynchronous engine maintenance (cleaning, checkpointing). A Daemon owns
// a latch-protected work queue and a single worker goroutine with a
// run/pause/shutdown state machine; concrete daemons plug in via the
// Worker hook.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"emberdb/pkg/latch"
)

// Outcome is the explicit result of one unit of background work.
type Outcome int

const (
	// OK: the wake cycle completed.
	OK Outcome = iota
	// Retry: transient contention was detected; the cycle should be retried
	// up to the worker's MaxRetries bound.
	Retry
	// Fatal: the worker hit an unknown internal failure; the daemon stops
	// rather than risk making the engine worse.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Retry:
		return "retry"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Worker is the hook a concrete daemon implements. OnWakeup performs one
// unit of background work; it is never invoked concurrently with itself
// (wakes arriving during a cycle are coalesced into at most one further
// cycle).
type Worker interface {
	Name() string
	MaxRetries() int
	OnWakeup(ctx context.Context) (Outcome, error)
}

// shutdownPoll bounds how long Shutdown sleeps between re-waking the
// worker while waiting for the loop to observe the shutdown flag.
const shutdownPoll = 50 * time.Millisecond

// Daemon runs a Worker in a single background goroutine and owns its work
// queue. The queue is guarded by a Latch; items are delivered to the
// worker via DrainQueue from inside OnWakeup.
type Daemon[T any] struct {
	worker   Worker
	interval time.Duration // 0 means wait indefinitely for a wake
	log      *slog.Logger

	queueLatch *latch.Latch
	queue      []T

	wake     chan struct{} // cap 1: wakes coalesce
	paused   atomic.Bool
	shutdown atomic.Bool
	loopDone chan struct{}

	startMu sync.Mutex
	started bool
}

// New creates a stopped daemon around worker. interval is the wake timeout
// for an empty queue; zero waits indefinitely for an explicit wake. table
// may be nil.
func New[T any](worker Worker, interval time.Duration, table *latch.Table, log *slog.Logger) *Daemon[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Daemon[T]{
		worker:     worker,
		interval:   interval,
		log:        log.With("daemon", worker.Name()),
		queueLatch: latch.New(worker.Name()+".queue", table),
		wake:       make(chan struct{}, 1),
		loopDone:   make(chan struct{}),
	}
}

// Enqueue adds a work item under the queue latch and wakes the worker.
func (d *Daemon[T]) Enqueue(ctx context.Context, owner latch.Owner, item T) error {
	if err := d.queueLatch.Acquire(ctx, owner); err != nil {
		return err
	}
	d.queue = append(d.queue, item)
	if err := d.queueLatch.Release(owner); err != nil {
		return err
	}
	d.WakeUp()
	return nil
}

// DrainQueue removes and returns all queued items. Intended for use by the
// worker from inside OnWakeup.
func (d *Daemon[T]) DrainQueue(ctx context.Context, owner latch.Owner) ([]T, error) {
	if err := d.queueLatch.Acquire(ctx, owner); err != nil {
		return nil, err
	}
	items := d.queue
	d.queue = nil
	if err := d.queueLatch.Release(owner); err != nil {
		return nil, err
	}
	return items, nil
}

// QueueLen returns the number of queued items.
func (d *Daemon[T]) QueueLen(ctx context.Context, owner latch.Owner) (int, error) {
	if err := d.queueLatch.Acquire(ctx, owner); err != nil {
		return 0, err
	}
	n := len(d.queue)
	if err := d.queueLatch.Release(owner); err != nil {
		return 0, err
	}
	return n, nil
}

// WakeUp nudges the worker loop. Wakes arriving while one is already
// pending are coalesced.
func (d *Daemon[T]) WakeUp() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// RunOrPause starts the worker loop on the first run=true call, resumes a
// paused loop on later ones, and pauses the loop on run=false. Pausing
// does not interrupt an in-flight cycle; the loop parks once it next
// checks the flag. Items enqueued while paused are retained.
func (d *Daemon[T]) RunOrPause(ctx context.Context, run bool) {
	if !run {
		d.paused.Store(true)
		return
	}
	d.paused.Store(false)
	d.startMu.Lock()
	if !d.started && !d.shutdown.Load() {
		d.started = true
		go d.loop(ctx)
	}
	d.startMu.Unlock()
	d.WakeUp()
}

// Shutdown requests termination and blocks until the worker loop exits.
// Cooperative: an in-flight OnWakeup finishes its cycle. Idempotent.
func (d *Daemon[T]) Shutdown() {
	d.shutdown.Store(true)
	d.startMu.Lock()
	started := d.started
	d.startMu.Unlock()
	if !started {
		return
	}
	for {
		d.WakeUp()
		select {
		case <-d.loopDone:
			return
		case <-time.After(shutdownPoll):
		}
	}
}

func (d *Daemon[T]) loop(ctx context.Context) {
	defer close(d.loopDone)
	d.log.Info("daemon started")
	owner := latch.NextOwner()

	for {
		if d.shutdown.Load() {
			d.log.Info("daemon stopped")
			return
		}
		if d.paused.Load() {
			<-d.wake
			continue
		}

		n, err := d.QueueLen(ctx, owner)
		if err != nil {
			d.log.Error("daemon queue latch failed", "error", err)
			return
		}
		if n == 0 {
			d.waitForWake()
			// Flags may have flipped while asleep.
			if d.shutdown.Load() || d.paused.Load() {
				continue
			}
		}

		d.runOneCycle(ctx)
	}
}

// waitForWake parks until an explicit wake or, with a non-zero interval,
// until the interval elapses.
func (d *Daemon[T]) waitForWake() {
	if d.interval == 0 {
		<-d.wake
		return
	}
	t := time.NewTimer(d.interval)
	defer t.Stop()
	select {
	case <-d.wake:
	case <-t.C:
	}
}

// runOneCycle invokes OnWakeup, retrying transient contention up to the
// worker's bound. A Fatal outcome stops the daemon.
func (d *Daemon[T]) runOneCycle(ctx context.Context) {
	for retries := 0; ; retries++ {
		outcome, err := d.worker.OnWakeup(ctx)
		switch outcome {
		case OK:
			return
		case Retry:
			if retries >= d.worker.MaxRetries() {
				d.log.Warn("giving up wake cycle after retries",
					"retries", retries, "error", err)
				return
			}
		case Fatal:
			d.log.Error("daemon failed, stopping", "error", err)
			d.shutdown.Store(true)
			return
		}
	}
}
