// Package format prepares message text for display.
package format

import (
	"slices"
	"sort"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// DefaultShortcodes are the text emoticons replaced when a message is shown.
func DefaultShortcodes() map[string]string {
	return map[string]string{
		":)":            "😊",
		":D":            "😃",
		":(":            "😢",
		":P":            "😛",
		";)":            "😉",
		"<3":            "❤️",
		"</3":           "💔",
		":heart:":       "❤️",
		":fire:":        "🔥",
		":star:":        "⭐",
		":thumbs_up:":   "👍",
		":thumbs_down:": "👎",
	}
}

// EmojiFormatter replaces shortcodes in one pass with an Aho-Corasick automaton.
// Overlapping candidates resolve to the leftmost, then the longest.
type EmojiFormatter struct {
	matcher  *goahocorasick.Machine
	emojis   map[string]string
	disabled bool
}

func NewEmojiFormatter(shortcodes map[string]string) (EmojiFormatter, error) {
	codes := lo.Filter(lo.Keys(shortcodes), func(code string, _ int) bool { return code != "" })
	if len(codes) == 0 {
		return EmojiFormatter{disabled: true}, nil
	}
	sort.Strings(codes)

	patterns := lo.Map(codes, func(code string, _ int) []rune { return []rune(code) })
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return EmojiFormatter{}, err
	}
	return EmojiFormatter{matcher: m, emojis: shortcodes}, nil
}

type span struct {
	start, end int
	code       string
}

func (f EmojiFormatter) Replace(text string) string {
	if f.disabled || text == "" {
		return text
	}
	runes := []rune(text)
	terms := f.matcher.MultiPatternSearch(runes, false)
	if len(terms) == 0 {
		return text
	}

	spans := lo.Map(terms, func(term *goahocorasick.Term, _ int) span {
		return span{start: term.Pos, end: term.Pos + len(term.Word), code: string(term.Word)}
	})
	slices.SortFunc(spans, func(a, b span) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return b.end - a.end
	})

	var out strings.Builder
	cursor := 0
	for _, s := range spans {
		if s.start < cursor || s.start < 0 || s.end > len(runes) {
			continue
		}
		out.WriteString(string(runes[cursor:s.start]))
		out.WriteString(f.emojis[s.code])
		cursor = s.end
	}
	out.WriteString(string(runes[cursor:]))
	return out.String()
}
