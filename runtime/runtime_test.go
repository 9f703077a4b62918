package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"localchat/domain"
	"localchat/infrastructure/storage"
	"localchat/observability"
	"localchat/services"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

type countingTarget struct {
	messages, presence, typing atomic.Int32
}

func (c *countingTarget) PollMessages()  { c.messages.Add(1) }
func (c *countingTarget) RefreshRoster() { c.presence.Add(1) }
func (c *countingTarget) RefreshTyping() { c.typing.Add(1) }

// syncRenderer is written to by the pollers and read by the test.
type syncRenderer struct {
	mu      sync.Mutex
	texts   []string
	rosters []domain.Roster
}

func (r *syncRenderer) RenderMessages(batch []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range batch {
		r.texts = append(r.texts, m.Text)
	}
}

func (r *syncRenderer) RenderRoster(roster domain.Roster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rosters = append(r.rosters, roster)
}

func (r *syncRenderer) RenderTyping(string) {}

func (r *syncRenderer) saw(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.texts {
		if t == text {
			return true
		}
	}
	return false
}

func TestScheduler_RunsEachPollerAtItsOwnInterval(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	target := &countingTarget{}
	scheduler := NewScheduler(slog.Default(), nil, clock, DefaultIntervals(), 0)

	scheduler.Start(context.Background(), target)
	scheduler.Start(context.Background(), target)
	req.True(scheduler.Running())

	// Every poller runs once right away
	req.Eventually(func() bool {
		return target.messages.Load() == 1 && target.presence.Load() == 1 && target.typing.Load() == 1
	}, time.Second, 5*time.Millisecond)

	req.NoError(clock.BlockUntilContext(context.Background(), 3))
	clock.Advance(500 * time.Millisecond)
	req.Eventually(func() bool { return target.messages.Load() == 2 }, time.Second, 5*time.Millisecond)

	req.NoError(clock.BlockUntilContext(context.Background(), 3))
	clock.Advance(500 * time.Millisecond)
	req.Eventually(func() bool {
		return target.messages.Load() == 3 && target.typing.Load() == 2
	}, time.Second, 5*time.Millisecond)
	req.Equal(int32(1), target.presence.Load())

	scheduler.Stop()
	req.False(scheduler.Running())
	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	req.Equal(int32(3), target.messages.Load())
}

func TestScheduler_StopBeforeFirstTick(t *testing.T) {
	scheduler := NewScheduler(slog.Default(), nil, clockwork.NewFakeClock(), DefaultIntervals(), 0)
	scheduler.Start(context.Background(), &countingTarget{})
	scheduler.Stop()
	scheduler.Stop()
	require.False(t, scheduler.Running())
}

type browserFixture struct {
	browser *Browser
	clock   fakeClock
	users   storage.PresenceRepository
}

func newBrowserFixture(t *testing.T) browserFixture {
	log := slog.Default()
	monitoring := observability.NewMonitoringManager(log)
	store, err := storage.OpenInMemory(log, monitoring)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := clockwork.NewFakeClock()
	users := storage.NewPresenceRepository(store)
	deps := services.Dependencies{
		Messages:   services.NewMessageLog(storage.NewMessageRepository(store, log, 0), log),
		Presence:   services.NewPresenceTracker(users, 0, log),
		Settings:   storage.NewSettingsRepository(store),
		Clock:      clock,
		Log:        log,
		Monitoring: monitoring,
	}
	browser := NewBrowser(deps, storage.NewTypingRepository(store, time.Minute), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	browser.Start(ctx)
	t.Cleanup(func() {
		browser.Close()
		cancel()
	})
	return browserFixture{browser: browser, clock: clock, users: users}
}

func TestBrowser_TabsExchangeMessagesThroughPolling(t *testing.T) {
	req := require.New(t)
	f := newBrowserFixture(t)
	amyView, bobView := &syncRenderer{}, &syncRenderer{}
	amy := f.browser.OpenTab(amyView)
	bob := f.browser.OpenTab(bobView)

	req.NoError(amy.Login("Amy", "#667eea"))
	req.NoError(bob.Login("Bob", "#f56565"))
	req.True(amy.Polling())

	_, err := amy.Session().Send("hello bob")
	req.NoError(err)

	req.Eventually(func() bool {
		f.clock.Advance(500 * time.Millisecond)
		return bobView.saw("hello bob") && amyView.saw("Bob joined the chat")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBrowser_LogoutStopsPollingAndRemovesPresence(t *testing.T) {
	req := require.New(t)
	f := newBrowserFixture(t)
	tab := f.browser.OpenTab(nil)

	req.NoError(tab.Login("Amy", "#667eea"))
	req.NoError(tab.Logout())
	req.False(tab.Polling())

	users, err := f.users.All()
	req.NoError(err)
	req.Empty(users)
}

func TestBrowser_CloseTabLeavesOfflineRecord(t *testing.T) {
	req := require.New(t)
	f := newBrowserFixture(t)
	tab := f.browser.OpenTab(nil)

	req.NoError(tab.Login("Amy", "#667eea"))
	req.NoError(f.browser.CloseTab(tab.ID()))
	_, ok := f.browser.Tab(tab.ID())
	req.False(ok)

	users, err := f.users.All()
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(domain.StatusOffline, users[0].Status)
}

func TestBrowser_ActivityMonitorMarksIdleTabs(t *testing.T) {
	req := require.New(t)
	f := newBrowserFixture(t)
	idle := f.browser.OpenTab(nil)
	loggedOut := f.browser.OpenTab(nil)

	req.NoError(idle.Login("Amy", "#667eea"))

	// Three pollers and the monitor are waiting on the clock
	req.NoError(f.clock.BlockUntilContext(context.Background(), 4))
	f.clock.Advance(61 * time.Second)
	req.Eventually(func() bool {
		user, _ := idle.Session().User()
		return user.Status == domain.StatusIdle
	}, 2*time.Second, 10*time.Millisecond)
	req.False(loggedOut.Session().IsLoggedIn())

	req.NoError(idle.Show())
	user, _ := idle.Session().User()
	req.Equal(domain.StatusOnline, user.Status)
}
