package storage

import (
	"testing"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_DefaultsThenSaved(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewSettingsRepository(store)

	settings, err := repo.Load("default")
	req.NoError(err)
	req.Equal(domain.Settings{SoundNotifications: true, Theme: "dark"}, settings)

	req.NoError(repo.Save("default", domain.Settings{SoundNotifications: false, Theme: "light"}))
	settings, err = repo.Load("default")
	req.NoError(err)
	req.False(settings.SoundNotifications)
	req.Equal("light", settings.Theme)

	// Profiles are independent
	other, err := repo.Load("work")
	req.NoError(err)
	req.True(other.SoundNotifications)
}

func TestSettingsRepository_CorruptFallsBackToDefaults(t *testing.T) {
	req := require.New(t)
	store, _ := SetupTestStore(t)
	repo := NewSettingsRepository(store)

	req.NoError(store.DB().Update(func(txn *badger.Txn) error {
		return txn.Set(Settings.Key("default"), []byte("[]]"))
	}))

	settings, err := repo.Load("default")
	req.NoError(err)
	req.Equal(domain.DefaultSettings(), settings)
}
