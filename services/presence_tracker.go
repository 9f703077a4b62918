package services

import (
	"fmt"
	"log/slog"
	"time"

	"localchat/contract"
	"localchat/domain"

	"github.com/samber/lo"
	"go.uber.org/multierr"
)

const DefaultStaleAfter = 10 * time.Minute

// PresenceTracker merges every session's presence record into one roster.
type PresenceTracker struct {
	repository contract.IPresenceRepository
	staleAfter time.Duration
	log        *slog.Logger
}

func NewPresenceTracker(repository contract.IPresenceRepository, staleAfter time.Duration, log *slog.Logger) *PresenceTracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &PresenceTracker{repository: repository, staleAfter: staleAfter, log: log}
}

func (p *PresenceTracker) Announce(user domain.UserPresence) error {
	if err := p.repository.Save(user); err != nil {
		return fmt.Errorf("saving presence of %s failed: %w", user.ID, err)
	}
	return nil
}

func (p *PresenceTracker) Leave(sessionID string) error {
	if err := p.repository.Delete(sessionID); err != nil {
		return fmt.Errorf("removing presence of %s failed: %w", sessionID, err)
	}
	return nil
}

// ListActive returns the sessions seen within the staleness window, ordered
// for display. Stale records are only filtered out, storage is untouched.
func (p *PresenceTracker) ListActive(now time.Time) (domain.Roster, error) {
	users, err := p.repository.All()
	if err != nil {
		return domain.Roster{}, fmt.Errorf("listing presence failed: %w", err)
	}
	active := lo.Filter(users, func(u domain.UserPresence, _ int) bool {
		return !p.isStale(u, now)
	})
	domain.SortPresence(active)
	return domain.Roster{
		Users: active,
		OnlineCount: lo.CountBy(active, func(u domain.UserPresence) bool {
			return u.Status == domain.StatusOnline
		}),
	}, nil
}

// Prune deletes stale records from storage and returns how many went away.
func (p *PresenceTracker) Prune(now time.Time) (int, error) {
	users, err := p.repository.All()
	if err != nil {
		return 0, fmt.Errorf("listing presence failed: %w", err)
	}
	var errs error
	pruned := 0
	for _, u := range users {
		if !p.isStale(u, now) {
			continue
		}
		if err := p.repository.Delete(u.ID); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pruned++
	}
	if pruned > 0 {
		p.log.Info("Pruned stale presence records", "count", pruned)
	}
	return pruned, errs
}

func (p *PresenceTracker) isStale(u domain.UserPresence, now time.Time) bool {
	return now.Sub(u.LastSeenAt) >= p.staleAfter
}
