package storage

import (
	"testing"
	"time"

	"localchat/domain"

	"github.com/stretchr/testify/require"
)

func TestPresenceRepository_SaveUpsertsAndDeleteRemoves(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewPresenceRepository(store)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	amy := domain.UserPresence{ID: "a", DisplayName: "Amy", Status: domain.StatusOnline, LastSeenAt: at}
	req.NoError(repo.Save(amy))
	amy.Status = domain.StatusIdle
	req.NoError(repo.Save(amy))
	req.NoError(repo.Save(domain.UserPresence{ID: "b", DisplayName: "Bob", Status: domain.StatusOnline, LastSeenAt: at}))

	users, err := repo.All()
	req.NoError(err)
	req.Len(users, 2)
	req.Equal(domain.StatusIdle, users[0].Status)

	req.NoError(repo.Delete("a"))
	users, err = repo.All()
	req.NoError(err)
	req.Len(users, 1)
	req.Equal("b", users[0].ID)

	// Deleting an unknown session is not an error
	req.NoError(repo.Delete("unknown"))
}
