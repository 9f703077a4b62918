package projection

import (
	"fmt"
	"testing"
	"time"

	"localchat/domain"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func message(id uint64) domain.Message {
	m := domain.NewSystemMessage(fmt.Sprintf("message %d", id), time.Now())
	m.ID = id
	return m
}

func messages(ids ...uint64) []domain.Message {
	return lo.Map(ids, func(id uint64, _ int) domain.Message { return message(id) })
}

func ids(ms []domain.Message) []uint64 {
	return lo.Map(ms, func(m domain.Message, _ int) uint64 { return m.ID })
}

func TestTimeline_Consume_OrdersAndDeduplicates(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(0)

	// An echoed message can land before older messages from other tabs
	update := timeline.Consume(messages(5))
	req.Equal([]uint64{5}, ids(update.Added))
	update = timeline.Consume(messages(3, 4, 5, 6))
	req.Equal([]uint64{3, 4, 6}, ids(update.Added))
	req.True(update.AutoScroll)

	req.Equal([]uint64{3, 4, 5, 6}, ids(timeline.Tail(0)))
	req.Empty(timeline.Consume(messages(4, 6)).Added)
}

func TestTimeline_Consume_CapsHistory(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(500)

	for id := uint64(1); id <= 510; id++ {
		timeline.Consume(messages(id))
	}
	req.Equal(500, timeline.Len())
	tail := timeline.Tail(0)
	req.Equal(uint64(11), tail[0].ID)
	req.Equal(uint64(510), tail[len(tail)-1].ID)

	// Dropped messages never come back
	req.Empty(timeline.Consume(messages(3)).Added)
	req.Equal([]uint64{509, 510}, ids(timeline.Tail(2)))
}

func TestTimeline_AutoScrollOnlyAtBottom(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)

	timeline.SetAtBottom(false)
	update := timeline.Consume(messages(1, 2))
	req.False(update.AutoScroll)
	req.Len(update.Added, 2)
	req.Equal(2, timeline.Unread())

	timeline.SetAtBottom(true)
	req.Equal(0, timeline.Unread())
	req.True(timeline.Consume(messages(3)).AutoScroll)
}

func TestTimeline_Reset(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)
	timeline.Consume(messages(1, 2))
	timeline.SetAtBottom(false)

	timeline.Reset()
	req.Zero(timeline.Len())
	req.True(timeline.AtBottom())
	req.Len(timeline.Consume(messages(3)).Added, 1)
}
