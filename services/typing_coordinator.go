package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"localchat/contract"
	"localchat/domain"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

const DefaultTypingDebounce = 2 * time.Second

type typingTimer struct {
	timer      clockwork.Timer
	generation uint64
}

// TypingCoordinator maintains this session's entries of the shared typing set.
// Every Start re-arms the inactivity timer; when it fires the name is removed.
// mu is held across the store writes so an expiry can never delete a name
// that a concurrent Start has just re-added.
type TypingCoordinator struct {
	mu         sync.Mutex
	repository contract.ITypingRepository
	clock      clockwork.Clock
	debounce   time.Duration
	log        *slog.Logger
	timers     map[string]typingTimer
	generation uint64
}

func NewTypingCoordinator(repository contract.ITypingRepository, clock clockwork.Clock, debounce time.Duration, log *slog.Logger) *TypingCoordinator {
	if debounce <= 0 {
		debounce = DefaultTypingDebounce
	}
	return &TypingCoordinator{
		repository: repository,
		clock:      clock,
		debounce:   debounce,
		log:        log,
		timers:     make(map[string]typingTimer),
	}
}

func (c *TypingCoordinator) Start(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repository.Add(name, c.clock.Now()); err != nil {
		return fmt.Errorf("marking %s as typing failed: %w", name, err)
	}

	if current, ok := c.timers[name]; ok {
		current.timer.Stop()
	}
	c.generation++
	generation := c.generation
	c.timers[name] = typingTimer{
		timer:      c.clock.AfterFunc(c.debounce, func() { c.expire(name, generation) }),
		generation: generation,
	}
	return nil
}

func (c *TypingCoordinator) Stop(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.timers[name]; ok {
		current.timer.Stop()
		delete(c.timers, name)
	}

	if err := c.repository.Remove(name); err != nil {
		return fmt.Errorf("clearing typing of %s failed: %w", name, err)
	}
	return nil
}

// expire runs on the timer. A timer that was re-armed after it started
// firing carries an old generation and does nothing.
func (c *TypingCoordinator) expire(name string, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.timers[name]
	if !ok || current.generation != generation {
		return
	}
	delete(c.timers, name)

	if err := c.repository.Remove(name); err != nil {
		c.log.Warn("Typing expiry failed", "name", name, "error", err)
	}
}

// Peers returns who else is typing, in the order they started.
func (c *TypingCoordinator) Peers(self string) ([]string, error) {
	entries, err := c.repository.All()
	if err != nil {
		return nil, fmt.Errorf("reading typing set failed: %w", err)
	}
	return lo.FilterMap(entries, func(e domain.TypingEntry, _ int) (string, bool) {
		return e.Name, e.Name != self
	}), nil
}

// Close disarms every pending timer without touching the store.
func (c *TypingCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, current := range c.timers {
		current.timer.Stop()
		delete(c.timers, name)
	}
}
