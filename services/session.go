package services

import (
	"log/slog"
	"sync"
	"time"

	"localchat/contract"
	"localchat/domain"
	"localchat/errors"
	"localchat/observability"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
)

type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged-in"
	}
	return "logged-out"
}

type SessionConfig struct {
	Profile  string
	Limits   Limits
	Activity domain.ActivityThresholds
	// ClearHistoryOnLogout leaves only the "left the chat" message in the
	// shared log after logout.
	ClearHistoryOnLogout bool
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Profile:  "default",
		Limits:   DefaultLimits(),
		Activity: domain.DefaultActivityThresholds(),
	}
}

// Dependencies are shared by every session of a process.
type Dependencies struct {
	Messages   *MessageLog
	Presence   *PresenceTracker
	Settings   contract.ISettingsRepository
	Notifier   contract.Notifier
	Clock      clockwork.Clock
	Log        *slog.Logger
	Monitoring *observability.MonitoringManager
}

// Session is one login of one tab: LoggedOut -> LoggedIn -> LoggedOut.
// All of its state is private; other sessions only see what it writes to the store.
type Session struct {
	mu       sync.Mutex
	deps     Dependencies
	config   SessionConfig
	typing   *TypingCoordinator
	renderer contract.Renderer
	log      *slog.Logger

	state        State
	user         domain.UserPresence
	watermark    uint64
	lastActivity time.Time
	settings     domain.Settings
}

func NewSession(deps Dependencies, config SessionConfig, typing *TypingCoordinator, renderer contract.Renderer) *Session {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Session{
		deps:         deps,
		config:       config,
		typing:       typing,
		renderer:     renderer,
		log:          deps.Log,
		lastActivity: deps.Clock.Now(),
		settings:     domain.DefaultSettings(),
	}
}

// Login validates the identity, registers presence and announces the join.
// The watermark starts past every existing message so the new session sees
// no backlog.
func (s *Session) Login(displayName, color string) error {
	req, err := s.config.Limits.ValidateLogin(LoginRequest{DisplayName: displayName, Color: color})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LoggedIn {
		return errors.ErrAlreadyLoggedIn
	}

	watermark, err := s.deps.Messages.Watermark()
	if err != nil {
		return err
	}
	settings, err := s.deps.Settings.Load(s.config.Profile)
	if err != nil {
		s.log.Warn("Settings unreadable, using defaults", "profile", s.config.Profile, "error", err)
	}

	now := s.deps.Clock.Now()
	user := domain.UserPresence{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Color:       req.Color,
		JoinedAt:    now,
		Status:      domain.StatusOnline,
		LastSeenAt:  now,
	}
	if err = s.deps.Presence.Announce(user); err != nil {
		return err
	}

	s.user = user
	s.watermark = watermark
	s.lastActivity = now
	s.settings = settings
	s.state = LoggedIn

	if _, err = s.deps.Messages.Post(domain.NewSystemMessage(domain.JoinedText(user.DisplayName), now)); err != nil {
		s.log.Warn("Join announcement lost", "error", err)
	}
	s.log.Info("User logged in", "session", user.ID, "name", user.DisplayName)
	return nil
}

// Logout announces the departure and removes every trace of the session
// from the shared presence and typing sets. A logged-out session is a no-op.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return nil
	}

	var errs error
	now := s.deps.Clock.Now()
	left, err := s.deps.Messages.Post(domain.NewSystemMessage(domain.LeftText(s.user.DisplayName), now))
	errs = multierr.Append(errs, err)
	errs = multierr.Append(errs, s.deps.Presence.Leave(s.user.ID))
	errs = multierr.Append(errs, s.typing.Stop(s.user.DisplayName))
	s.typing.Close()

	if s.config.ClearHistoryOnLogout && err == nil {
		errs = multierr.Append(errs, s.deps.Messages.ReplaceWith(left))
	}

	s.log.Info("User logged out", "session", s.user.ID, "name", s.user.DisplayName)
	s.state = LoggedOut
	s.user = domain.UserPresence{}
	s.watermark = 0
	return errs
}

// Send posts a user message. Polls never return a session's own messages,
// so the renderer gets it right away.
func (s *Session) Send(text string) (domain.Message, error) {
	text, err := s.config.Limits.ValidateText(text)
	if err != nil {
		return domain.Message{}, err
	}

	s.mu.Lock()
	if s.state != LoggedIn {
		s.mu.Unlock()
		return domain.Message{}, errors.ErrNotLoggedIn
	}
	now := s.deps.Clock.Now()
	message, err := s.deps.Messages.Post(domain.NewUserMessage(s.user.Author(), text, now))
	if err != nil {
		s.mu.Unlock()
		return domain.Message{}, err
	}
	if err = s.typing.Stop(s.user.DisplayName); err != nil {
		s.log.Warn("Typing indicator not cleared", "error", err)
	}
	s.touch(now)
	s.mu.Unlock()

	s.renderer.RenderMessages([]domain.Message{message})
	return message, nil
}

// Typing records a keystroke: joins the typing set and bumps activity.
func (s *Session) Typing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return nil
	}
	s.touch(s.deps.Clock.Now())
	return s.typing.Start(s.user.DisplayName)
}

// touch bumps last activity and brings an idle or away session back online.
// Callers hold mu.
func (s *Session) touch(now time.Time) {
	s.lastActivity = now
	if err := s.setStatus(domain.StatusOnline, now); err != nil {
		s.log.Warn("Presence not refreshed", "error", err)
	}
}

func (s *Session) StopTyping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return nil
	}
	return s.typing.Stop(s.user.DisplayName)
}

// UpdateStatus overwrites status and last seen. No-op while logged out.
func (s *Session) UpdateStatus(status domain.Status) error {
	if !status.Valid() {
		return errors.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return nil
	}
	return s.setStatus(status, s.deps.Clock.Now())
}

func (s *Session) setStatus(status domain.Status, now time.Time) error {
	s.user.Status = status
	s.user.LastSeenAt = now
	return s.deps.Presence.Announce(s.user)
}

// DeriveActivity moves the status along online -> idle -> away from the time
// since the last outgoing message or typing event.
func (s *Session) DeriveActivity() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return nil
	}
	now := s.deps.Clock.Now()
	status := s.config.Activity.StatusFromInactivity(now.Sub(s.lastActivity))
	return s.setStatus(status, now)
}

// Resume is called when the tab becomes visible again.
func (s *Session) Resume() error {
	return s.UpdateStatus(domain.StatusOnline)
}

// Suspend is called when the tab goes away without logging out: the record
// stays, marked offline, until it ages out of the roster.
func (s *Session) Suspend() error {
	return s.UpdateStatus(domain.StatusOffline)
}

func (s *Session) ChangeColor(color string) error {
	if err := s.config.Limits.ValidateColor(color); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return errors.ErrNotLoggedIn
	}
	now := s.deps.Clock.Now()
	s.user.Color = color
	s.user.LastSeenAt = now
	if err := s.deps.Presence.Announce(s.user); err != nil {
		return err
	}
	_, err := s.deps.Messages.Post(domain.NewSystemMessage(domain.ColorChangedText(s.user.DisplayName), now))
	return err
}

func (s *Session) SetSound(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.SoundNotifications = enabled
	return s.deps.Settings.Save(s.config.Profile, s.settings)
}

func (s *Session) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Theme = theme
	return s.deps.Settings.Save(s.config.Profile, s.settings)
}

func (s *Session) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// History returns up to limit of the newest messages in the shared log,
// including those posted before this session logged in.
func (s *Session) History(limit int) ([]domain.Message, error) {
	return s.deps.Messages.Recent(limit)
}

// PruneRoster deletes presence records that went stale.
func (s *Session) PruneRoster() (int, error) {
	return s.deps.Presence.Prune(s.deps.Clock.Now())
}

// ClearHistory wipes the shared log for everyone.
func (s *Session) ClearHistory() error {
	return s.deps.Messages.Clear()
}

// PollMessages delivers the new batch to the renderer and rings the cue once
// per non-empty batch when sound is on.
func (s *Session) PollMessages() {
	s.mu.Lock()
	if s.state != LoggedIn {
		s.mu.Unlock()
		return
	}
	batch, err := s.deps.Messages.PollNew(s.watermark, s.user.ID)
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("Message poll failed", "error", err)
		return
	}
	s.watermark = batch.Watermark
	sound := s.settings.SoundNotifications
	s.mu.Unlock()

	if len(batch.Messages) == 0 {
		return
	}
	s.deps.Monitoring.AddMessagesDelivered(len(batch.Messages))
	s.renderer.RenderMessages(batch.Messages)
	if sound && s.deps.Notifier != nil {
		if err = s.deps.Notifier.Notify(); err != nil {
			s.deps.Monitoring.IncrNotificationFailures()
			s.log.Warn("Could not play notification sound", "error", err)
		}
	}
}

func (s *Session) RefreshRoster() {
	if !s.IsLoggedIn() {
		return
	}
	roster, err := s.deps.Presence.ListActive(s.deps.Clock.Now())
	if err != nil {
		s.log.Warn("Presence poll failed", "error", err)
		return
	}
	s.renderer.RenderRoster(roster)
}

func (s *Session) RefreshTyping() {
	s.mu.Lock()
	if s.state != LoggedIn {
		s.mu.Unlock()
		return
	}
	self := s.user.DisplayName
	s.mu.Unlock()

	names, err := s.typing.Peers(self)
	if err != nil {
		s.log.Warn("Typing poll failed", "error", err)
		return
	}
	s.renderer.RenderTyping(domain.TypingText(names))
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsLoggedIn() bool {
	return s.State() == LoggedIn
}

// User returns the presence record of the logged-in session.
func (s *Session) User() (domain.UserPresence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == LoggedIn
}

func (s *Session) Watermark() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// NopRenderer drops everything, for headless sessions.
type NopRenderer struct{}

func (NopRenderer) RenderMessages([]domain.Message) {}
func (NopRenderer) RenderRoster(domain.Roster)      {}
func (NopRenderer) RenderTyping(string)             {}
