package services

import (
	"log/slog"
	"testing"
	"time"

	"localchat/contract"
	"localchat/domain"
	"localchat/infrastructure/storage"
	"localchat/observability"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

// fixture wires the services on an in-memory store the way a process does.
type fixture struct {
	store      *storage.Store
	clock      fakeClock
	monitoring *observability.MonitoringManager
	messages   storage.MessageRepository
	users      storage.PresenceRepository
	typing     storage.TypingRepository
	settings   storage.SettingsRepository
	deps       Dependencies
}

func newFixture(t *testing.T) *fixture {
	log := slog.Default()
	monitoring := observability.NewMonitoringManager(log)
	store, err := storage.OpenInMemory(log, monitoring)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	f := &fixture{
		store:      store,
		clock:      clock,
		monitoring: monitoring,
		messages:   storage.NewMessageRepository(store, log, 0),
		users:      storage.NewPresenceRepository(store),
		typing:     storage.NewTypingRepository(store, time.Minute),
		settings:   storage.NewSettingsRepository(store),
	}
	f.deps = Dependencies{
		Messages:   NewMessageLog(f.messages, log),
		Presence:   NewPresenceTracker(f.users, DefaultStaleAfter, log),
		Settings:   f.settings,
		Clock:      clock,
		Log:        log,
		Monitoring: monitoring,
	}
	return f
}

func (f *fixture) newSession(renderer contract.Renderer, notifier contract.Notifier, config SessionConfig) *Session {
	deps := f.deps
	deps.Notifier = notifier
	typing := NewTypingCoordinator(f.typing, f.clock, DefaultTypingDebounce, deps.Log)
	return NewSession(deps, config, typing, renderer)
}

// recordingRenderer keeps everything it was asked to render.
type recordingRenderer struct {
	batches [][]domain.Message
	rosters []domain.Roster
	typing  []string
}

func (r *recordingRenderer) RenderMessages(batch []domain.Message) {
	r.batches = append(r.batches, batch)
}

func (r *recordingRenderer) RenderRoster(roster domain.Roster) {
	r.rosters = append(r.rosters, roster)
}

func (r *recordingRenderer) RenderTyping(text string) {
	r.typing = append(r.typing, text)
}

func (r *recordingRenderer) texts() []string {
	var texts []string
	for _, batch := range r.batches {
		for _, m := range batch {
			texts = append(texts, m.Text)
		}
	}
	return texts
}
