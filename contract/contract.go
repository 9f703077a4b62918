//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"localchat/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type namedWorker interface {
	Name() string
}

// GetWorkerName returns the worker's own Name when it has one, otherwise the
// type name found by reflection. Used for logging and supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(namedWorker); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	After(watermark uint64) ([]domain.Message, error)
	Recent(limit int) ([]domain.Message, error)
	All() ([]domain.Message, error)
	Replace(messages []domain.Message) error
	LastID() (uint64, error)
}

type IPresenceRepository interface {
	Save(user domain.UserPresence) error
	Delete(sessionID string) error
	All() ([]domain.UserPresence, error)
}

type ITypingRepository interface {
	Add(name string, at time.Time) error
	Remove(name string) error
	All() ([]domain.TypingEntry, error)
}

type ISettingsRepository interface {
	Load(profile string) (domain.Settings, error)
	Save(profile string, settings domain.Settings) error
}

// Renderer is the presentation layer. It consumes state, never mutates it.
type Renderer interface {
	RenderMessages(batch []domain.Message)
	RenderRoster(roster domain.Roster)
	RenderTyping(text string)
}

// Notifier plays the new-message cue, once per delivered batch.
type Notifier interface {
	Notify() error
}
