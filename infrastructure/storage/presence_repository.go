package storage

import (
	"fmt"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
)

// PresenceRepository keeps one "users:{session id}" key per logged-in session.
// A session only ever writes its own key, so writers never race on the same entry.
type PresenceRepository struct {
	store *Store
}

func NewPresenceRepository(store *Store) PresenceRepository {
	return PresenceRepository{store: store}
}

func (p PresenceRepository) Save(user domain.UserPresence) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return p.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Users.Key(user.ID), data)
	})
}

func (p PresenceRepository) Delete(sessionID string) error {
	return p.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(Users.Key(sessionID))
	})
}

func (p PresenceRepository) All() ([]domain.UserPresence, error) {
	return Get[domain.UserPresence](p.store, Users)
}
