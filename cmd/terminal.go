package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"localchat/domain"
	"localchat/format"
	"localchat/observability"
	"localchat/projection"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "15:04"

// terminal renders a tab on a line-oriented terminal.
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	timeline *projection.Timeline
	emoji    format.EmojiFormatter

	roster domain.Roster
	typing string
}

func newTerminal(out io.Writer, timeline *projection.Timeline, emoji format.EmojiFormatter) *terminal {
	return &terminal{out: out, timeline: timeline, emoji: emoji}
}

func (t *terminal) RenderMessages(batch []domain.Message) {
	update := t.timeline.Consume(batch)
	if len(update.Added) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !update.AutoScroll {
		fmt.Fprintf(t.out, "%s\n", color.Gray.Sprintf("(%d new, /follow to read)", t.timeline.Unread()))
		return
	}
	for _, m := range update.Added {
		t.writeMessage(m)
	}
}

func (t *terminal) writeMessage(m domain.Message) {
	stamp := color.Gray.Sprint(m.CreatedAt.Local().Format(timeLayout))
	if m.IsSystem() || m.Author == nil {
		fmt.Fprintf(t.out, "%s %s\n", stamp, color.New(color.FgGray, color.OpItalic).Render("* "+m.Text))
		return
	}
	fmt.Fprintf(t.out, "%s %s: %s\n", stamp, color.HEX(m.Author.Color).Sprint(m.Author.Name), t.emoji.Replace(m.Text))
}

func (t *terminal) RenderRoster(roster domain.Roster) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if roster.OnlineCount != t.roster.OnlineCount {
		fmt.Fprintf(t.out, "%s\n", color.Green.Sprintf("● %d online", roster.OnlineCount))
	}
	t.roster = roster
}

func (t *terminal) RenderTyping(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if text == t.typing {
		return
	}
	t.typing = text
	if text != "" {
		fmt.Fprintf(t.out, "%s\n", color.Gray.Sprint(text))
	}
}

// follow prints what arrived while the reader was scrolled away.
func (t *terminal) follow() {
	missed := t.timeline.Unread()
	t.timeline.SetAtBottom(true)
	if missed == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.timeline.Tail(missed) {
		t.writeMessage(m)
	}
}

func (t *terminal) history(n int) {
	t.replay(t.timeline.Tail(n))
}

func (t *terminal) replay(messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range messages {
		t.writeMessage(m)
	}
}

func (t *terminal) info(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s\n", color.Cyan.Sprintf(format, args...))
}

func (t *terminal) warn(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s\n", color.Yellow.Sprintf(format, args...))
}

func (t *terminal) showRoster() {
	t.mu.Lock()
	defer t.mu.Unlock()

	table := newTable(t.out, []string{"", "Name", "Status", "Joined", "Last seen"})
	for _, u := range t.roster.Users {
		table.Append([]string{
			color.HEX(u.Color).Sprint(u.Initial()),
			u.DisplayName,
			string(u.Status),
			u.JoinedAt.Local().Format(timeLayout),
			u.LastSeenAt.Local().Format(timeLayout),
		})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d online", t.roster.OnlineCount), "", ""})
	table.Render()
}

func (t *terminal) showStats(stats observability.MonitoringStats, process observability.ProcessStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	table := newTable(t.out, []string{"Metric", "Value"})
	rows := [][]string{
		{"ticks", fmt.Sprint(stats.Ticks)},
		{"skipped ticks", fmt.Sprint(stats.SkippedTicks)},
		{"task panics", fmt.Sprint(stats.TaskPanics)},
		{"worker restarts", fmt.Sprint(stats.WorkerRestarts)},
		{"append retries", fmt.Sprint(stats.AppendRetries)},
		{"corrupt entries", fmt.Sprint(stats.CorruptEntries)},
		{"messages delivered", fmt.Sprint(stats.MessagesDelivered)},
		{"notification failures", fmt.Sprint(stats.NotificationFailures)},
		{"heap (MB)", fmt.Sprint(stats.AllocMemMb)},
		{"gc cycles", fmt.Sprint(stats.NumGC)},
	}
	if process.PID != 0 {
		rows = append(rows,
			[]string{"pid", fmt.Sprint(process.PID)},
			[]string{"cpu (%)", fmt.Sprintf("%.1f", process.CPUPercent)},
			[]string{"rss (MB)", fmt.Sprint(process.RSSBytes / 1024 / 1024)},
		)
	}
	table.AppendBulk(rows)
	table.Render()
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
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

func prompt(out io.Writer, text string) {
	fmt.Fprint(out, color.Bold.Sprint(strings.TrimSpace(text)+" "))
}
