// Package domain contains core concepts of the chat system.
// This file defines presence records and the status rules derived from activity.
// No runtime, storage, or UI logic should be added here.
package domain

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// Rank orders statuses for display, most available first.
// Unknown statuses sort after offline.
func (s Status) Rank() int {
	switch s {
	case StatusOnline:
		return 0
	case StatusIdle:
		return 1
	case StatusAway:
		return 2
	case StatusOffline:
		return 3
	default:
		return 4
	}
}

func (s Status) Valid() bool {
	return s.Rank() < 4
}

// ActivityThresholds drive the online -> idle -> away derivation.
type ActivityThresholds struct {
	IdleAfter time.Duration
	AwayAfter time.Duration
}

func DefaultActivityThresholds() ActivityThresholds {
	return ActivityThresholds{IdleAfter: time.Minute, AwayAfter: 5 * time.Minute}
}

// StatusFromInactivity maps the time since the last outgoing message or typing
// event to a status. Both bounds are exclusive.
func (t ActivityThresholds) StatusFromInactivity(elapsed time.Duration) Status {
	switch {
	case elapsed > t.AwayAfter:
		return StatusAway
	case elapsed > t.IdleAfter:
		return StatusIdle
	default:
		return StatusOnline
	}
}

// UserPresence is one record per logged-in session, not per person.
type UserPresence struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	JoinedAt    time.Time `json:"joinedAt"`
	Status      Status    `json:"status"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

func (u UserPresence) Author() Author {
	return Author{ID: u.ID, Name: u.DisplayName, Color: u.Color}
}

// Initial returns the upper-cased first letter of the display name, used as avatar.
func (u UserPresence) Initial() string {
	for _, r := range u.DisplayName {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Roster is the ordered list of active sessions and how many of them are online.
type Roster struct {
	Users       []UserPresence
	OnlineCount int
}

// SortPresence orders users by status rank, then by display name using the
// root locale collation, then by id so the order is total.
func SortPresence(users []UserPresence) {
	collator := collate.New(language.Und)
	slices.SortStableFunc(users, func(a, b UserPresence) int {
		if diff := a.Status.Rank() - b.Status.Rank(); diff != 0 {
			return diff
		}
		if diff := collator.CompareString(a.DisplayName, b.DisplayName); diff != 0 {
			return diff
		}
		return strings.Compare(a.ID, b.ID)
	})
}
