package domain

import (
	"fmt"
	"strings"
	"time"
)

// TypingEntry is one member of the shared typing set.
type TypingEntry struct {
	Name  string    `json:"name"`
	Since time.Time `json:"since"`
}

// TypingText renders the indicator line for the given names, in order.
func TypingText(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", names[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing...", names[0], names[1])
	default:
		last := len(names) - 1
		return fmt.Sprintf("%s and %s are typing...", strings.Join(names[:last], ", "), names[last])
	}
}
