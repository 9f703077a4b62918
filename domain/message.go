// Package domain contains core concepts of the chat system.
// This file defines Message entries and related rules.
// Messages are immutable once appended to the shared log.
package domain

import (
	"fmt"
	"time"
)

type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// Author identifies the session that wrote a user message.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Message is a tagged variant: Kind tells which one it is and Author is only
// set for KindUser. ID is assigned by the log on append and is 0 before that.
type Message struct {
	ID        uint64      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Author    *Author     `json:"author,omitempty"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"createdAt"`
}

func NewUserMessage(author Author, text string, at time.Time) Message {
	return Message{
		Kind:      KindUser,
		Author:    &author,
		Text:      text,
		CreatedAt: at,
	}
}

func NewSystemMessage(text string, at time.Time) Message {
	return Message{
		Kind:      KindSystem,
		Text:      text,
		CreatedAt: at,
	}
}

func (m Message) IsSystem() bool {
	return m.Kind == KindSystem
}

// AuthoredBy reports whether the message was written by the given session.
// System messages have no author.
func (m Message) AuthoredBy(sessionID string) bool {
	return m.Kind == KindUser && m.Author != nil && m.Author.ID == sessionID
}

func JoinedText(name string) string {
	return fmt.Sprintf("%s joined the chat", name)
}

func LeftText(name string) string {
	return fmt.Sprintf("%s left the chat", name)
}

func ColorChangedText(name string) string {
	return fmt.Sprintf("%s changed their color", name)
}
