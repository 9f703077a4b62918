// Package projection keeps the local, displayed view of the shared log.
// Handles ordering, deduplication and the history cap.
// Does not read the store or write to the screen.
package projection

import (
	"slices"
	"sync"

	"localchat/domain"
)

const DefaultCapacity = 500

// Update describes what one Consume changed.
type Update struct {
	Added []domain.Message
	// AutoScroll is set when the reader was following the bottom of the view.
	AutoScroll bool
}

// Timeline holds the messages a tab shows, oldest first, capped at capacity.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	messages []domain.Message
	ids      map[uint64]struct{}
	// floor is the highest id pushed out by the cap.
	floor    uint64
	atBottom bool
	unread   int
}

func NewTimeline(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Timeline{
		capacity: capacity,
		ids:      make(map[uint64]struct{}),
		atBottom: true,
	}
}

// Consume merges a batch. Messages already shown, or older than what the cap
// dropped, are ignored.
func (t *Timeline) Consume(batch []domain.Message) Update {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added []domain.Message
	for _, m := range batch {
		if _, seen := t.ids[m.ID]; seen || m.ID <= t.floor {
			continue
		}
		t.ids[m.ID] = struct{}{}
		added = append(added, m)
	}
	if len(added) == 0 {
		return Update{}
	}

	t.messages = append(t.messages, added...)
	slices.SortStableFunc(t.messages, func(a, b domain.Message) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if overflow := len(t.messages) - t.capacity; overflow > 0 {
		for _, m := range t.messages[:overflow] {
			delete(t.ids, m.ID)
			t.floor = max(t.floor, m.ID)
		}
		t.messages = slices.Clone(t.messages[overflow:])
	}

	if !t.atBottom {
		t.unread += len(added)
	}
	return Update{Added: added, AutoScroll: t.atBottom}
}

// SetAtBottom records where the reader is. Reaching the bottom clears the
// unread count.
func (t *Timeline) SetAtBottom(atBottom bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.atBottom = atBottom
	if atBottom {
		t.unread = 0
	}
}

func (t *Timeline) AtBottom() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.atBottom
}

func (t *Timeline) Unread() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unread
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Tail returns the newest n messages, oldest first. n <= 0 returns them all.
func (t *Timeline) Tail(n int) []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.messages) {
		n = len(t.messages)
	}
	return slices.Clone(t.messages[len(t.messages)-n:])
}

// Reset empties the view, for a cleared history or a new login.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
	t.ids = make(map[uint64]struct{})
	t.unread = 0
	t.atBottom = true
}
