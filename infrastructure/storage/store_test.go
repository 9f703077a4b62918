package storage

import (
	"log/slog"
	"testing"
	"time"

	"localchat/domain"
	"localchat/observability"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// SetupTestStore initializes an in-memory Badger store for testing
func SetupTestStore(t *testing.T) (*Store, *observability.MonitoringManager) {
	monitoring := observability.NewMonitoringManager(slog.Default())
	store, err := OpenInMemory(slog.Default(), monitoring)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, monitoring
}

func TestStore_PutThenGet_RoundTrip(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	users := []domain.UserPresence{
		{ID: "a", DisplayName: "Amy", Color: "#667eea", JoinedAt: at, Status: domain.StatusOnline, LastSeenAt: at},
		{ID: "b", DisplayName: "Bob", Color: "#f56565", JoinedAt: at, Status: domain.StatusAway, LastSeenAt: at.Add(time.Minute)},
	}
	req.NoError(Put(store, Users, users, func(u domain.UserPresence) string { return u.ID }))

	fetched, err := Get[domain.UserPresence](store, Users)
	req.NoError(err)
	req.Equal(users, fetched)

	messages := []domain.Message{
		withID(domain.NewSystemMessage("Amy joined the chat", at), 1),
		withID(domain.NewUserMessage(domain.Author{ID: "a", Name: "Amy", Color: "#667eea"}, "hello", at), 2),
	}
	req.NoError(Put(store, Messages, messages, messageKeySuffix))

	fetchedMessages, err := Get[domain.Message](store, Messages)
	req.NoError(err)
	req.Equal(messages, fetchedMessages)
}

func TestStore_Put_ReplacesWholeCollection(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	names := func(e domain.TypingEntry) string { return e.Name }
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	req.NoError(Put(store, Typing, []domain.TypingEntry{{Name: "Amy", Since: at}, {Name: "Bob", Since: at}}, names))
	req.NoError(Put(store, Typing, []domain.TypingEntry{{Name: "Cid", Since: at}}, names))

	fetched, err := Get[domain.TypingEntry](store, Typing)
	req.NoError(err)
	req.Equal([]domain.TypingEntry{{Name: "Cid", Since: at}}, fetched)
}

func TestStore_Get_MissingCollectionIsEmpty(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)

	fetched, err := Get[domain.Message](store, Messages)
	req.NoError(err)
	req.Empty(fetched)
}

func TestStore_Get_SkipsCorruptEntries(t *testing.T) {
	req := require.New(t)
	store, monitoring := SetupTestStore(t)
	repo := NewPresenceRepository(store)

	req.NoError(repo.Save(domain.UserPresence{ID: "a", DisplayName: "Amy", Status: domain.StatusOnline}))
	req.NoError(store.DB().Update(func(txn *badger.Txn) error {
		return txn.Set(Users.Key("broken"), []byte("{not json"))
	}))

	fetched, err := repo.All()
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("Amy", fetched[0].DisplayName)
	req.Equal(uint64(1), monitoring.GetLatest().CorruptEntries)
}

func TestStore_Collections_DoNotOverlap(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)

	req.NoError(NewPresenceRepository(store).Save(domain.UserPresence{ID: "a", DisplayName: "Amy"}))
	req.NoError(NewTypingRepository(store, 0).Add("Amy", time.Now()))
	req.NoError(NewSettingsRepository(store).Save("default", domain.DefaultSettings()))

	messages, err := Get[domain.Message](store, Messages)
	req.NoError(err)
	req.Empty(messages)
	users, err := Get[domain.UserPresence](store, Users)
	req.NoError(err)
	req.Len(users, 1)
}

func withID(m domain.Message, id uint64) domain.Message {
	m.ID = id
	return m
}
