package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"localchat/contract"
	"localchat/runtime/workers"
	"localchat/services"

	"github.com/google/uuid"
)

type Config struct {
	Session          services.SessionConfig
	Intervals        Intervals
	ActivityInterval time.Duration
	TypingDebounce   time.Duration
	RestartInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Session:          services.DefaultSessionConfig(),
		Intervals:        DefaultIntervals(),
		ActivityInterval: 30 * time.Second,
		TypingDebounce:   services.DefaultTypingDebounce,
		RestartInterval:  workers.DefaultRestartInterval,
	}
}

// Browser is one process hosting any number of tabs over the same store.
// Tabs share nothing but the store, the clock and the activity monitor.
type Browser struct {
	mu     sync.RWMutex
	deps   services.Dependencies
	typing contract.ITypingRepository
	config Config
	log    *slog.Logger
	tabs   map[string]*Tab

	ctx         context.Context
	stopMonitor context.CancelFunc
	monitorDone chan struct{}
}

func NewBrowser(deps services.Dependencies, typing contract.ITypingRepository, config Config) *Browser {
	return &Browser{
		deps:   deps,
		typing: typing,
		config: config,
		log:    deps.Log,
		tabs:   make(map[string]*Tab),
		ctx:    context.Background(),
	}
}

// Start launches the activity monitor. It runs for the whole life of the
// process whatever the tabs' login state.
func (b *Browser) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopMonitor != nil {
		return
	}
	b.ctx = ctx
	monitor := workers.NewSupervisor(b.log, b.deps.Monitoring, b.config.RestartInterval)
	monitor.Add(workers.NewPeriodicWorker("activity-monitor", b.config.ActivityInterval,
		b.deriveActivity, b.log, b.deps.Monitoring, workers.WithClock(b.deps.Clock)))
	monitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.stopMonitor, b.monitorDone = cancel, done

	go func() {
		defer close(done)
		monitor.Run(monitorCtx)
	}()
	b.log.Info("Activity monitor started", "interval", b.config.ActivityInterval)
}

func (b *Browser) deriveActivity() {
	for _, tab := range b.Tabs() {
		if err := tab.session.DeriveActivity(); err != nil {
			b.log.Warn("Activity update failed", "tab", tab.id, "error", err)
		}
	}
}

// OpenTab creates a logged-out session rendering to renderer.
func (b *Browser) OpenTab(renderer contract.Renderer) *Tab {
	typing := services.NewTypingCoordinator(b.typing, b.deps.Clock, b.config.TypingDebounce, b.log)
	tab := &Tab{
		id:        uuid.NewString(),
		browser:   b,
		session:   services.NewSession(b.deps, b.config.Session, typing, renderer),
		scheduler: NewScheduler(b.log, b.deps.Monitoring, b.deps.Clock, b.config.Intervals, b.config.RestartInterval),
	}

	b.mu.Lock()
	b.tabs[tab.id] = tab
	b.mu.Unlock()
	return tab
}

func (b *Browser) Tab(id string) (*Tab, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tab, ok := b.tabs[id]
	return tab, ok
}

func (b *Browser) Tabs() []*Tab {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tabs := make([]*Tab, 0, len(b.tabs))
	for _, tab := range b.tabs {
		tabs = append(tabs, tab)
	}
	return tabs
}

// CloseTab drops a tab without logging it out: its pollers stop and its
// presence stays behind as offline until it goes stale.
func (b *Browser) CloseTab(id string) error {
	b.mu.Lock()
	tab, ok := b.tabs[id]
	delete(b.tabs, id)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	tab.scheduler.Stop()
	return tab.session.Suspend()
}

// Close closes every tab then stops the activity monitor.
func (b *Browser) Close() {
	for _, tab := range b.Tabs() {
		if err := b.CloseTab(tab.id); err != nil {
			b.log.Warn("Tab not closed cleanly", "tab", tab.id, "error", err)
		}
	}

	b.mu.Lock()
	stop, done := b.stopMonitor, b.monitorDone
	b.stopMonitor, b.monitorDone = nil, nil
	b.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
}

func (b *Browser) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// Tab couples a session with its pollers.
type Tab struct {
	id        string
	browser   *Browser
	session   *services.Session
	scheduler *Scheduler
}

func (t *Tab) ID() string {
	return t.id
}

func (t *Tab) Session() *services.Session {
	return t.session
}

// Login logs the session in and starts its pollers.
func (t *Tab) Login(displayName, color string) error {
	if err := t.session.Login(displayName, color); err != nil {
		return err
	}
	t.scheduler.Start(t.browser.context(), t.session)
	return nil
}

// Logout stops the pollers first so no tick runs against a logged-out session.
func (t *Tab) Logout() error {
	t.scheduler.Stop()
	return t.session.Logout()
}

// Show is called when the tab becomes visible again.
func (t *Tab) Show() error {
	return t.session.Resume()
}

func (t *Tab) Polling() bool {
	return t.scheduler.Running()
}
