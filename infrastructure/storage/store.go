package storage

import (
	"fmt"
	"log/slog"
	"time"

	"localchat/observability"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collection names one logical document of the shared store.
// Every entry of a collection lives under the "<collection>:" key prefix.
type Collection string

const (
	Messages Collection = "messages"
	Users    Collection = "users"
	Typing   Collection = "typing"
	Settings Collection = "settings"
)

func (c Collection) Prefix() []byte {
	return []byte(string(c) + ":")
}

func (c Collection) Key(suffix string) []byte {
	return []byte(string(c) + ":" + suffix)
}

// Store is the shared key-value medium every session coordinates through.
type Store struct {
	db         *badger.DB
	log        *slog.Logger
	monitoring *observability.MonitoringManager
}

func NewStore(db *badger.DB, log *slog.Logger, monitoring *observability.MonitoringManager) *Store {
	return &Store{db: db, log: log, monitoring: monitoring}
}

// Open opens (or creates) the on-disk store at path.
func Open(path string, log *slog.Logger, monitoring *observability.MonitoringManager) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return NewStore(db, log, monitoring), nil
}

// OpenReadOnly opens a store owned by another process for inspection.
// BypassLockGuard lets it open while the owner holds the directory lock.
func OpenReadOnly(path string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("read-only database opening failed: %w", err)
	}
	return NewStore(db, log, nil), nil
}

// OpenInMemory is used by tests and by the demo when no path is configured.
func OpenInMemory(log *slog.Logger, monitoring *observability.MonitoringManager) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("in-memory database opening failed: %w", err)
	}
	return NewStore(db, log, monitoring), nil
}

func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

type entry struct {
	key   []byte
	value []byte
	ttl   time.Duration
}

// Get reads a whole collection in key order.
// Entries that fail to decode are skipped and logged, a missing collection is empty.
func Get[T any](s *Store, c Collection) ([]T, error) {
	items := make([]T, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := c.Prefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item, ok, err := decodeItem[T](s, it.Item())
			if err != nil {
				return err
			}
			if ok {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s failed: %w", c, err)
	}
	return items, nil
}

// Put replaces a whole collection in one transaction, so no reader ever sees
// a half-written collection. key derives each entry's key suffix.
func Put[T any](s *Store, c Collection, items []T, key func(T) string) error {
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		value, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		entries = append(entries, entry{key: c.Key(key(item)), value: value})
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.replace(txn, c, entries)
	})
}

// replace deletes every key under the collection prefix then writes entries.
func (s *Store) replace(txn *badger.Txn, c Collection, entries []entry) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var stale [][]byte
	prefix := c.Prefix()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		stale = append(stale, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := txn.SetEntry(newEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

func newEntry(e entry) *badger.Entry {
	be := badger.NewEntry(e.key, e.value)
	if e.ttl > 0 {
		be = be.WithTTL(e.ttl)
	}
	return be
}

func decodeItem[T any](s *Store, item *badger.Item) (T, bool, error) {
	var decoded T
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return decoded, false, err
	}
	if err = json.Unmarshal(raw, &decoded); err != nil {
		s.log.Warn("Skipping corrupt entry", "key", string(item.Key()), "error", err)
		s.monitoring.IncrCorruptEntries()
		var zero T
		return zero, false, nil
	}
	return decoded, true, nil
}

// getOne decodes a single key. found is false when the key is absent or corrupt.
func getOne[T any](s *Store, txn *badger.Txn, key []byte) (T, bool, error) {
	var zero T
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return decodeItem[T](s, item)
}
