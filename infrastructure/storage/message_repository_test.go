package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Append_AssignsIncreasingIDs(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)
	at := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		stored, err := repo.Append(domain.NewSystemMessage(fmt.Sprintf("message %d", i), at))
		req.NoError(err)
		req.Equal(uint64(i), stored.ID)
	}

	last, err := repo.LastID()
	req.NoError(err)
	req.Equal(uint64(3), last)

	all, err := repo.All()
	req.NoError(err)
	req.Equal([]uint64{1, 2, 3}, ids(all))
}

func TestMessageRepository_Append_ConcurrentWritersLoseNothing(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 500)

	writers, perWriter := 10, 10
	errs := make(chan error, writers*perWriter)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			author := domain.Author{ID: fmt.Sprintf("session-%d", w), Name: fmt.Sprintf("user_%d", w)}
			for i := 0; i < perWriter; i++ {
				_, err := repo.Append(domain.NewUserMessage(author, fmt.Sprintf("msg %d", i), time.Now().UTC()))
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	all, err := repo.All()
	req.NoError(err)
	req.Len(all, writers*perWriter)
	req.Equal(lo.RangeFrom(uint64(1), writers*perWriter), ids(all))
}

func TestMessageRepository_After(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)

	for i := 0; i < 12; i++ {
		_, err := repo.Append(domain.NewSystemMessage("m", time.Now().UTC()))
		req.NoError(err)
	}

	after, err := repo.After(9)
	req.NoError(err)
	req.Equal([]uint64{10, 11, 12}, ids(after))

	none, err := repo.After(12)
	req.NoError(err)
	req.Empty(none)

	all, err := repo.After(0)
	req.NoError(err)
	req.Len(all, 12)
}

func TestMessageRepository_Recent(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)

	for i := 0; i < 5; i++ {
		_, err := repo.Append(domain.NewSystemMessage("m", time.Now().UTC()))
		req.NoError(err)
	}

	recent, err := repo.Recent(2)
	req.NoError(err)
	req.Equal([]uint64{4, 5}, ids(recent))

	everything, err := repo.Recent(0)
	req.NoError(err)
	req.Equal([]uint64{1, 2, 3, 4, 5}, ids(everything))
}

func TestMessageRepository_Replace_NeverReusesIDs(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)

	for i := 0; i < 4; i++ {
		_, err := repo.Append(domain.NewSystemMessage("m", time.Now().UTC()))
		req.NoError(err)
	}
	req.NoError(repo.Replace(nil))

	all, err := repo.All()
	req.NoError(err)
	req.Empty(all)

	stored, err := repo.Append(domain.NewSystemMessage("after clear", time.Now().UTC()))
	req.NoError(err)
	req.Equal(uint64(5), stored.ID)
}

func TestMessageRepository_Replace_MovesSequenceForward(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	seed := []domain.Message{
		withID(domain.NewSystemMessage("one", at), 1),
		withID(domain.NewSystemMessage("two", at), 2),
		withID(domain.NewSystemMessage("three", at), 3),
	}
	req.NoError(repo.Replace(seed))

	last, err := repo.LastID()
	req.NoError(err)
	req.Equal(uint64(3), last)

	all, err := repo.All()
	req.NoError(err)
	req.Equal(seed, all)
}

func ids(messages []domain.Message) []uint64 {
	return lo.Map(messages, func(m domain.Message, _ int) uint64 { return m.ID })
}

func TestMessageRepository_CorruptSequenceRecoversFromKeys(t *testing.T) {
	req := require.New(t)
	store, monitoring := SetupTestStore(t)
	repo := NewMessageRepository(store, slog.Default(), 0)
	at := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		_, err := repo.Append(domain.NewSystemMessage(fmt.Sprintf("message %d", i), at))
		req.NoError(err)
	}
	req.NoError(store.DB().Update(func(txn *badger.Txn) error {
		return txn.Set(messageSeqKey, []byte{0x01, 0x02, 0x03})
	}))

	last, err := repo.LastID()
	req.NoError(err)
	req.Equal(uint64(3), last)

	stored, err := repo.Append(domain.NewSystemMessage("message 4", at))
	req.NoError(err)
	req.Equal(uint64(4), stored.ID)
	req.Equal(uint64(2), monitoring.GetLatest().CorruptEntries)

	// The append rewrote a valid sequence
	last, err = repo.LastID()
	req.NoError(err)
	req.Equal(uint64(4), last)
	req.Equal(uint64(2), monitoring.GetLatest().CorruptEntries)
}
