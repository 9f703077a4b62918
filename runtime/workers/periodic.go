package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"localchat/observability"

	"github.com/jonboulle/clockwork"
)

// PeriodicWorker runs a task every interval until its context ends.
// A tick that arrives while the previous run is still going is skipped, so
// runs never overlap and never queue up. A panicking task is recovered and
// the next tick runs as usual.
type PeriodicWorker struct {
	name       string
	interval   time.Duration
	immediate  bool
	task       func()
	clock      clockwork.Clock
	log        *slog.Logger
	monitoring *observability.MonitoringManager

	busy     atomic.Bool
	inFlight sync.WaitGroup
}

type PeriodicOption func(*PeriodicWorker)

// WithImmediateStart runs the task once as soon as the worker starts.
func WithImmediateStart() PeriodicOption {
	return func(w *PeriodicWorker) { w.immediate = true }
}

func WithClock(clock clockwork.Clock) PeriodicOption {
	return func(w *PeriodicWorker) { w.clock = clock }
}

func NewPeriodicWorker(
	name string,
	interval time.Duration,
	task func(),
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	opts ...PeriodicOption,
) *PeriodicWorker {
	w := &PeriodicWorker{
		name:       name,
		interval:   interval,
		task:       task,
		clock:      clockwork.NewRealClock(),
		log:        log,
		monitoring: monitoring,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *PeriodicWorker) Name() string {
	return w.name
}

// Run returns nil on cancellation, after the run in flight (if any) is over.
func (w *PeriodicWorker) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.inFlight.Wait()

	if w.immediate {
		w.fire()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			w.fire()
		}
	}
}

func (w *PeriodicWorker) fire() {
	w.monitoring.IncrTicks()
	if !w.busy.CompareAndSwap(false, true) {
		w.monitoring.IncrSkippedTicks()
		w.log.Debug("Previous run still going, tick skipped", "worker", w.name)
		return
	}
	w.inFlight.Add(1)
	go func() {
		defer w.inFlight.Done()
		defer w.busy.Store(false)
		defer func() {
			if r := recover(); r != nil {
				w.monitoring.IncrTaskPanics()
				w.log.Error("Periodic task panicked", "worker", w.name, "panic", r)
			}
		}()
		w.task()
	}()
}
