package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"localchat/format"
	"localchat/infrastructure/sound"
	"localchat/infrastructure/storage"
	"localchat/internal"
	"localchat/observability"
	"localchat/projection"
	"localchat/runtime"
	"localchat/runtime/workers"
	"localchat/services"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
)

const peerInterval = 4 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the process and returns instead of exiting, so every defer
// (store close, tab cleanup) runs before main decides the exit code.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	monitoring := observability.NewMonitoringManager(log)

	// 2. Shared store
	store, err := openStore(config, log, monitoring)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = store.Close()
	}()

	// 3. Services & runtime
	clock := clockwork.NewRealClock()
	deps := services.Dependencies{
		Messages:   services.NewMessageLog(storage.NewMessageRepository(store, log, config.AppendRetries), log),
		Presence:   services.NewPresenceTracker(storage.NewPresenceRepository(store), config.StaleAfter, log),
		Settings:   storage.NewSettingsRepository(store),
		Notifier:   sound.NewBell(os.Stdout),
		Clock:      clock,
		Log:        log,
		Monitoring: monitoring,
	}
	browser := runtime.NewBrowser(deps, storage.NewTypingRepository(store, config.TypingTTL), config.RuntimeConfig())

	emoji, err := format.NewEmojiFormatter(format.DefaultShortcodes())
	if err != nil {
		return fmt.Errorf("emoji formatter failed: %w", err)
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser.Start(ctx)
	defer browser.Close()

	term := newTerminal(os.Stdout, projection.NewTimeline(config.HistoryLimit), emoji)
	tab := browser.OpenTab(term)

	// 5. Simulated peers
	if config.SimulatedPeers > 0 {
		peerWorkers, err := startPeers(browser, config.SimulatedPeers, peerInterval, log, monitoring)
		if err != nil {
			return err
		}
		sup := workers.NewSupervisor(log, monitoring, config.RestartInterval)
		sup.Add(peerWorkers...)
		go sup.Run(ctx)
		defer sup.Stop()
	}

	// 6. Login then chat until /quit or a signal
	lines := readLines(ctx, os.Stdin)
	c := &client{tab: tab, term: term, monitoring: monitoring}
	if err = login(ctx, c, config.DefaultColor, lines); err != nil {
		return err
	}
	term.info("Welcome %s, type /help for commands", currentName(tab))

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down gracefully...")
			return tab.Logout()
		case line, ok := <-lines:
			if !ok {
				return tab.Logout()
			}
			quit, err := c.handle(line)
			if err != nil {
				term.warn("%v", err)
			}
			if quit {
				log.Info("Program stopped cleanly")
				return nil
			}
		}
	}
}

func openStore(config internal.Config, log *slog.Logger, monitoring *observability.MonitoringManager) (*storage.Store, error) {
	if config.InMemory {
		return storage.OpenInMemory(log, monitoring)
	}
	return storage.Open(config.BadgerFilepath, log, monitoring)
}

// login asks for a display name until one is accepted.
func login(ctx context.Context, c *client, defaultColor string, lines <-chan string) error {
	for {
		prompt(os.Stdout, "Display name:")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if err := c.tab.Login(line, defaultColor); err != nil {
				c.term.warn("%v", err)
				continue
			}
			return nil
		}
	}
}

func currentName(tab *runtime.Tab) string {
	user, _ := tab.Session().User()
	return user.DisplayName
}

// readLines feeds stdin lines to the main loop until EOF or cancellation.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
