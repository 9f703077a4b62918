package services

import (
	"fmt"
	"log/slog"

	"localchat/contract"
	"localchat/domain"

	"github.com/samber/lo"
)

// Batch is what one poll surfaced for a session.
type Batch struct {
	Messages  []domain.Message
	Watermark uint64
}

// MessageLog is the ordered, append-only shared message sequence.
type MessageLog struct {
	repository contract.IMessageRepository
	log        *slog.Logger
}

func NewMessageLog(repository contract.IMessageRepository, log *slog.Logger) *MessageLog {
	return &MessageLog{repository: repository, log: log}
}

// Post appends the message and returns it with its assigned id.
func (l *MessageLog) Post(message domain.Message) (domain.Message, error) {
	stored, err := l.repository.Append(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("posting %s message failed: %w", message.Kind, err)
	}
	l.log.Debug("Message posted", "id", stored.ID, "kind", stored.Kind)
	return stored, nil
}

// PollNew returns the messages past watermark that ownerID should be told
// about: system messages and other sessions' messages, never its own.
// The returned watermark covers every message read, filtered or not, and
// never goes below the one given.
func (l *MessageLog) PollNew(watermark uint64, ownerID string) (Batch, error) {
	fresh, err := l.repository.After(watermark)
	if err != nil {
		return Batch{Watermark: watermark}, fmt.Errorf("polling messages failed: %w", err)
	}

	next := watermark
	for _, m := range fresh {
		next = max(next, m.ID)
	}
	visible := lo.Filter(fresh, func(m domain.Message, _ int) bool {
		return m.IsSystem() || !m.AuthoredBy(ownerID)
	})
	return Batch{Messages: visible, Watermark: next}, nil
}

// Watermark is where a freshly logged-in session starts: past every existing
// message, so it begins with an empty view.
func (l *MessageLog) Watermark() (uint64, error) {
	return l.repository.LastID()
}

// Recent returns up to limit of the newest messages, oldest first.
func (l *MessageLog) Recent(limit int) ([]domain.Message, error) {
	return l.repository.Recent(limit)
}

// Clear wipes the shared log for every session. Ids are not reused afterwards.
func (l *MessageLog) Clear() error {
	if err := l.repository.Replace(nil); err != nil {
		return fmt.Errorf("clearing history failed: %w", err)
	}
	l.log.Info("Chat history cleared")
	return nil
}

// ReplaceWith keeps only the given messages in the shared log.
func (l *MessageLog) ReplaceWith(messages ...domain.Message) error {
	return l.repository.Replace(messages)
}
