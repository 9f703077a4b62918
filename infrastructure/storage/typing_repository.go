package storage

import (
	"fmt"
	"slices"
	"time"

	"localchat/domain"

	"github.com/dgraph-io/badger/v4"
)

// TypingRepository stores the shared typing set as "typing:{name}" keys.
// Entries carry a badger TTL so a session that died without clearing its
// entry drops out of the set on its own.
type TypingRepository struct {
	store *Store
	ttl   time.Duration
}

func NewTypingRepository(store *Store, ttl time.Duration) TypingRepository {
	return TypingRepository{store: store, ttl: ttl}
}

// Add inserts name or refreshes its TTL. The first start time is kept so
// the set stays ordered by who started typing first.
func (t TypingRepository) Add(name string, at time.Time) error {
	key := Typing.Key(name)
	return t.store.db.Update(func(txn *badger.Txn) error {
		existing, found, err := getOne[domain.TypingEntry](t.store, txn, key)
		if err != nil {
			return err
		}
		entry := domain.TypingEntry{Name: name, Since: at}
		if found {
			entry.Since = existing.Since
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.SetEntry(newEntry(newTypingEntry(key, data, t.ttl)))
	})
}

func (t TypingRepository) Remove(name string) error {
	return t.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(Typing.Key(name))
	})
}

// All returns the set ordered by typing start, then name.
func (t TypingRepository) All() ([]domain.TypingEntry, error) {
	entries, err := Get[domain.TypingEntry](t.store, Typing)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b domain.TypingEntry) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return entries, nil
}

func newTypingEntry(key, data []byte, ttl time.Duration) entry {
	return entry{key: key, value: data, ttl: ttl}
}
