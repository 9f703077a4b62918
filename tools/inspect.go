package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"localchat/domain"
	"localchat/infrastructure/storage"
	"localchat/internal"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "2006-01-02 15:04:05"

// Prints every collection of a chat store, even while a chat process holds it.
func main() {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	only := flag.String("collection", "", "Only print this collection (messages, users, typing, settings)")
	flag.Parse()

	logger := logs.GetLoggerFromString(config.LogLevel)
	store, err := storage.OpenReadOnly(*dbPath, logger)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer store.Close()

	dumps := map[storage.Collection]func(*storage.Store) error{
		storage.Messages: func(s *storage.Store) error {
			return dumpMessages(storage.NewMessageRepository(s, logger, 0))
		},
		storage.Users: func(s *storage.Store) error {
			return dumpUsers(storage.NewPresenceRepository(s))
		},
		storage.Typing: func(s *storage.Store) error {
			return dumpTyping(storage.NewTypingRepository(s, 0))
		},
		storage.Settings: dumpSettings,
	}
	for _, c := range []storage.Collection{storage.Messages, storage.Users, storage.Typing, storage.Settings} {
		if *only != "" && !strings.EqualFold(*only, string(c)) {
			continue
		}
		fmt.Printf("\n== %s ==\n", c)
		if err := dumps[c](store); err != nil {
			log.Fatal(err)
		}
	}
}

func dumpMessages(repo storage.MessageRepository) error {
	messages, err := repo.All()
	if err != nil {
		return err
	}
	table := newTable([]string{"ID", "Kind", "Author", "At", "Text"})
	for _, m := range messages {
		author := "-"
		if m.Author != nil {
			author = fmt.Sprintf("%s (%s)", m.Author.Name, shortID(m.Author.ID))
		}
		table.Append([]string{fmt.Sprint(m.ID), string(m.Kind), author, m.CreatedAt.Format(timeLayout), m.Text})
	}
	table.Render()
	return nil
}

func dumpUsers(repo storage.PresenceRepository) error {
	users, err := repo.All()
	if err != nil {
		return err
	}
	table := newTable([]string{"Session", "Name", "Color", "Status", "Joined", "Last seen"})
	for _, u := range users {
		table.Append([]string{shortID(u.ID), u.DisplayName, u.Color, string(u.Status),
			u.JoinedAt.Format(timeLayout), u.LastSeenAt.Format(timeLayout)})
	}
	table.Render()
	return nil
}

func dumpTyping(repo storage.TypingRepository) error {
	entries, err := repo.All()
	if err != nil {
		return err
	}
	table := newTable([]string{"Name", "Since"})
	for _, e := range entries {
		table.Append([]string{e.Name, e.Since.Format(timeLayout)})
	}
	table.Render()
	return nil
}

func dumpSettings(store *storage.Store) error {
	settings, err := storage.Get[domain.Settings](store, storage.Settings)
	if err != nil {
		return err
	}
	table := newTable([]string{"Sound", "Theme"})
	for _, s := range settings {
		table.Append([]string{fmt.Sprint(s.SoundNotifications), s.Theme})
	}
	table.Render()
	return nil
}

// shortID keeps the first 8 characters of a session id for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
