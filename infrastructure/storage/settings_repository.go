package storage

import (
	"fmt"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
)

// SettingsRepository stores one "settings:{profile}" document per browser profile.
type SettingsRepository struct {
	store *Store
}

func NewSettingsRepository(store *Store) SettingsRepository {
	return SettingsRepository{store: store}
}

// Load returns the profile settings, or the defaults when none were saved
// or the saved document is corrupt.
func (s SettingsRepository) Load(profile string) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	err := s.store.db.View(func(txn *badger.Txn) error {
		stored, found, err := getOne[domain.Settings](s.store, txn, Settings.Key(profile))
		if err != nil {
			return err
		}
		if found {
			settings = stored
		}
		return nil
	})
	if err != nil {
		return domain.DefaultSettings(), err
	}
	return settings, nil
}

func (s SettingsRepository) Save(profile string, settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return s.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Settings.Key(profile), data)
	})
}
