package storage

import (
	"encoding/binary"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strconv"

	"localchat/domain"
	"localchat/errors"

	"github.com/dgraph-io/badger/v4"
)

const defaultAppendRetries = 8

// messageSeqKey holds the highest id ever assigned. It survives Replace and
// Clear so a fresh append never reuses an id some session already surfaced.
var messageSeqKey = []byte("meta:messages:seq")

type MessageRepository struct {
	store   *Store
	log     *slog.Logger
	retries int
}

func NewMessageRepository(store *Store, log *slog.Logger, appendRetries int) MessageRepository {
	if appendRetries <= 0 {
		appendRetries = defaultAppendRetries
	}
	return MessageRepository{store: store, log: log, retries: appendRetries}
}

// messageKey is "messages:{id zero padded to 20 digits}" so the lexical key
// order is the numeric id order.
func messageKey(id uint64) []byte {
	return Messages.Key(fmt.Sprintf("%020d", id))
}

func messageKeySuffix(m domain.Message) string {
	return fmt.Sprintf("%020d", m.ID)
}

// Append assigns the next id and stores the message.
// Each attempt reads and bumps the sequence key inside one update transaction:
// when another session commits first badger rejects the commit with
// ErrConflict and we retry with a fresh id instead of losing either append.
func (r MessageRepository) Append(message domain.Message) (domain.Message, error) {
	for attempt := 1; attempt <= r.retries; attempt++ {
		var stored domain.Message
		err := r.store.db.Update(func(txn *badger.Txn) error {
			seq, err := r.readSeq(txn)
			if err != nil {
				return err
			}
			stored = message
			stored.ID = seq + 1

			bytes, err := json.Marshal(stored)
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			if err = txn.Set(messageKey(stored.ID), bytes); err != nil {
				return err
			}
			return txn.Set(messageSeqKey, encodeSeq(stored.ID))
		})
		if goerrors.Is(err, badger.ErrConflict) {
			r.log.Debug("Append conflicted, retrying", "attempt", attempt)
			r.store.monitoring.IncrAppendRetries()
			continue
		}
		if err != nil {
			return domain.Message{}, err
		}
		return stored, nil
	}
	return domain.Message{}, errors.ErrAppendConflict
}

// After returns every message with an id strictly greater than watermark, in log order.
func (r MessageRepository) After(watermark uint64) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := r.store.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := Messages.Prefix()
		for it.Seek(messageKey(watermark + 1)); it.ValidForPrefix(prefix); it.Next() {
			message, ok, err := decodeItem[domain.Message](r.store, it.Item())
			if err != nil {
				return err
			}
			if ok && message.ID > watermark {
				messages = append(messages, message)
			}
		}
		return nil
	})
	return messages, err
}

// Recent returns at most limit messages, the newest last.
func (r MessageRepository) Recent(limit int) ([]domain.Message, error) {
	var reversed []domain.Message
	err := r.store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := Messages.Prefix()
		// 0xFF sorts after every digit, so the reverse seek lands on the newest key
		for it.Seek(append(Messages.Prefix(), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(reversed) == limit {
				break
			}
			message, ok, err := decodeItem[domain.Message](r.store, it.Item())
			if err != nil {
				return err
			}
			if ok {
				reversed = append(reversed, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, len(reversed))
	for i, m := range reversed {
		messages[len(reversed)-1-i] = m
	}
	return messages, nil
}

func (r MessageRepository) All() ([]domain.Message, error) {
	return Get[domain.Message](r.store, Messages)
}

// Replace swaps the whole log. Ids are kept as given and the sequence only
// moves forward.
func (r MessageRepository) Replace(messages []domain.Message) error {
	entries := make([]entry, 0, len(messages))
	var highest uint64
	for _, m := range messages {
		bytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		entries = append(entries, entry{key: Messages.Key(messageKeySuffix(m)), value: bytes})
		highest = max(highest, m.ID)
	}
	return r.store.db.Update(func(txn *badger.Txn) error {
		seq, err := r.readSeq(txn)
		if err != nil {
			return err
		}
		if err = r.store.replace(txn, Messages, entries); err != nil {
			return err
		}
		return txn.Set(messageSeqKey, encodeSeq(max(seq, highest)))
	})
}

// LastID is the highest id ever assigned, 0 for a log that never had a message.
func (r MessageRepository) LastID() (uint64, error) {
	var seq uint64
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		seq, err = r.readSeq(txn)
		return err
	})
	return seq, err
}

// readSeq falls back to the highest stored message id when the sequence
// value is damaged. The next Append writes a valid one again.
func (r MessageRepository) readSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(messageSeqKey)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	valid := true
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			valid = false
			return nil
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	if err != nil || valid {
		return seq, err
	}

	seq = highestMessageID(txn)
	r.log.Warn("Message sequence corrupt, recovered from stored keys", "recovered", seq)
	r.store.monitoring.IncrCorruptEntries()
	return seq, nil
}

func highestMessageID(txn *badger.Txn) uint64 {
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	prefix := Messages.Prefix()
	for it.Seek(append(Messages.Prefix(), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
		id, err := strconv.ParseUint(string(it.Item().Key()[len(prefix):]), 10, 64)
		if err == nil {
			return id
		}
	}
	return 0
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
