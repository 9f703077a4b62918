package storage

import (
	"testing"
	"time"

	"localchat/domain"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestTypingRepository_OrderedByStart(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewTypingRepository(store, time.Minute)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	req.NoError(repo.Add("Zoe", start))
	req.NoError(repo.Add("Amy", start.Add(time.Second)))
	// Refreshing keeps the first start
	req.NoError(repo.Add("Zoe", start.Add(2*time.Second)))

	entries, err := repo.All()
	req.NoError(err)
	req.Equal([]string{"Zoe", "Amy"}, names(entries))
	req.Equal(start, entries[0].Since)

	req.NoError(repo.Remove("Zoe"))
	entries, err = repo.All()
	req.NoError(err)
	req.Equal([]string{"Amy"}, names(entries))
}

func TestTypingRepository_EntriesExpire(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a badger TTL")
	}
	store, _ := SetupTestStore(t)
	repo := NewTypingRepository(store, time.Second)

	require.NoError(t, repo.Add("Amy", time.Now()))

	require.Eventually(t, func() bool {
		entries, err := repo.All()
		return err == nil && len(entries) == 0
	}, 4*time.Second, 100*time.Millisecond)
}

func names(entries []domain.TypingEntry) []string {
	return lo.Map(entries, func(e domain.TypingEntry, _ int) string { return e.Name })
}
