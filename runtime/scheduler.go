// Package runtime drives sessions over time: the per-session pollers and
// the process-wide activity monitor. It holds no chat rules of its own.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"localchat/contract"
	"localchat/observability"
	"localchat/runtime/workers"

	"github.com/jonboulle/clockwork"
)

// Pollable is what the scheduler refreshes on every tick.
type Pollable interface {
	PollMessages()
	RefreshRoster()
	RefreshTyping()
}

type Intervals struct {
	Messages time.Duration
	Presence time.Duration
	Typing   time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Messages: 500 * time.Millisecond,
		Presence: 2 * time.Second,
		Typing:   time.Second,
	}
}

// Scheduler runs the three pollers of one logged-in session under a
// supervisor. It is started on login and stopped on logout.
type Scheduler struct {
	mu              sync.Mutex
	log             *slog.Logger
	monitoring      *observability.MonitoringManager
	clock           clockwork.Clock
	intervals       Intervals
	restartInterval time.Duration

	supervisor contract.ISupervisor
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewScheduler(log *slog.Logger, monitoring *observability.MonitoringManager,
	clock clockwork.Clock, intervals Intervals, restartInterval time.Duration) *Scheduler {
	return &Scheduler{
		log:             log,
		monitoring:      monitoring,
		clock:           clock,
		intervals:       intervals,
		restartInterval: restartInterval,
	}
}

// Start launches the pollers and returns immediately.
// Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context, target Pollable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supervisor != nil {
		return
	}

	supervisor := workers.NewSupervisor(s.log, s.monitoring, s.restartInterval)
	supervisor.Add(s.preparePollers(target)...)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.supervisor, s.cancel, s.done = supervisor, cancel, done

	go func() {
		defer close(done)
		supervisor.Run(runCtx)
	}()
	s.log.Debug("Pollers started",
		"messages", s.intervals.Messages,
		"presence", s.intervals.Presence,
		"typing", s.intervals.Typing)
}

func (s *Scheduler) preparePollers(target Pollable) []contract.Worker {
	newPoller := func(name string, interval time.Duration, task func()) contract.Worker {
		return workers.NewPeriodicWorker(name, interval, task, s.log, s.monitoring,
			workers.WithClock(s.clock), workers.WithImmediateStart())
	}
	return []contract.Worker{
		newPoller("message-poller", s.intervals.Messages, target.PollMessages),
		newPoller("presence-poller", s.intervals.Presence, target.RefreshRoster),
		newPoller("typing-poller", s.intervals.Typing, target.RefreshTyping),
	}
}

// Stop suppresses every future tick and waits for the runs in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	supervisor, cancel, done := s.supervisor, s.cancel, s.done
	s.supervisor, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()

	if supervisor == nil {
		return
	}
	cancel()
	supervisor.Stop()
	<-done
	s.log.Debug("Pollers stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supervisor != nil
}
