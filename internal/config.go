package internal

import (
	"fmt"
	"strings"
	"time"

	"localchat/domain"
	"localchat/runtime"
	"localchat/services"

	"github.com/go-playground/validator/v10"
)

// Config is read from the environment, a .env file is loaded first when present.
type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/localchat"`
	InMemory       bool   `env:"IN_MEMORY,default=false"`
	Profile        string `env:"PROFILE,default=default"`

	MessagePollInterval  time.Duration `env:"MESSAGE_POLL_INTERVAL,default=500ms"`
	PresencePollInterval time.Duration `env:"PRESENCE_POLL_INTERVAL,default=2s"`
	TypingPollInterval   time.Duration `env:"TYPING_POLL_INTERVAL,default=1s"`
	ActivityInterval     time.Duration `env:"ACTIVITY_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	IdleAfter      time.Duration `env:"IDLE_AFTER,default=1m"`
	AwayAfter      time.Duration `env:"AWAY_AFTER,default=5m"`
	StaleAfter     time.Duration `env:"STALE_AFTER,default=10m"`
	TypingDebounce time.Duration `env:"TYPING_DEBOUNCE,default=2s"`
	TypingTTL      time.Duration `env:"TYPING_TTL,default=5s"`

	HistoryLimit         int  `env:"HISTORY_LIMIT,default=500"`
	MaxNameLength        int  `env:"MAX_NAME_LENGTH,default=32"`
	MaxContentLength     int  `env:"MAX_CONTENT_LENGTH,default=2000"`
	AppendRetries        int  `env:"APPEND_RETRIES,default=8"`
	ClearHistoryOnLogout bool `env:"CLEAR_HISTORY_ON_LOGOUT,default=false"`

	SimulatedPeers int    `env:"SIMULATED_PEERS,default=0"`
	DefaultColor   string `env:"DEFAULT_COLOR,default=#667eea"`
}

type durationCheck struct {
	Name  string
	Value time.Duration `validate:"gt=0"`
}

// Validate rejects values the runtime cannot work with.
func (c Config) Validate() error {
	validate := validator.New()
	for _, d := range []durationCheck{
		{"MESSAGE_POLL_INTERVAL", c.MessagePollInterval},
		{"PRESENCE_POLL_INTERVAL", c.PresencePollInterval},
		{"TYPING_POLL_INTERVAL", c.TypingPollInterval},
		{"ACTIVITY_INTERVAL", c.ActivityInterval},
		{"TYPING_DEBOUNCE", c.TypingDebounce},
		{"TYPING_TTL", c.TypingTTL},
		{"STALE_AFTER", c.StaleAfter},
	} {
		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("%s must be positive, got %s", d.Name, d.Value)
		}
	}
	if c.IdleAfter <= 0 || c.AwayAfter <= c.IdleAfter {
		return fmt.Errorf("IDLE_AFTER (%s) must be positive and below AWAY_AFTER (%s)", c.IdleAfter, c.AwayAfter)
	}
	if c.HistoryLimit <= 0 || c.MaxNameLength <= 0 || c.MaxContentLength <= 0 {
		return fmt.Errorf("HISTORY_LIMIT, MAX_NAME_LENGTH and MAX_CONTENT_LENGTH must be positive")
	}
	if c.SimulatedPeers < 0 {
		return fmt.Errorf("SIMULATED_PEERS must not be negative, got %d", c.SimulatedPeers)
	}
	if err := validate.Var(c.DefaultColor, "required,hexcolor"); err != nil {
		return fmt.Errorf("DEFAULT_COLOR must be a hex color, got %q", c.DefaultColor)
	}
	if strings.TrimSpace(c.Profile) == "" {
		return fmt.Errorf("PROFILE must not be empty")
	}
	return nil
}

func (c Config) SessionConfig() services.SessionConfig {
	return services.SessionConfig{
		Profile: c.Profile,
		Limits: services.Limits{
			MaxNameLength:    c.MaxNameLength,
			MaxContentLength: c.MaxContentLength,
		},
		Activity: domain.ActivityThresholds{
			IdleAfter: c.IdleAfter,
			AwayAfter: c.AwayAfter,
		},
		ClearHistoryOnLogout: c.ClearHistoryOnLogout,
	}
}

func (c Config) RuntimeConfig() runtime.Config {
	return runtime.Config{
		Session: c.SessionConfig(),
		Intervals: runtime.Intervals{
			Messages: c.MessagePollInterval,
			Presence: c.PresencePollInterval,
			Typing:   c.TypingPollInterval,
		},
		ActivityInterval: c.ActivityInterval,
		TypingDebounce:   c.TypingDebounce,
		RestartInterval:  c.RestartInterval,
	}
}
