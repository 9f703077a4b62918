package main

import (
	"fmt"
	"strconv"
	"strings"

	"localchat/observability"
	"localchat/runtime"
)

const helpText = `/who              list who is here
/color <#hex>     change your color
/sound on|off     toggle the notification bell
/theme <name>     save a display theme for this profile
/prune            drop users that went stale from the shared roster
/clear            clear the shared history
/pause, /follow   stop or resume following new messages
/history [n]      show the last n messages, read from the shared log when
                  this view holds fewer
/stats            show runtime counters
/quit             log out and leave`

// client turns input lines into session calls.
type client struct {
	tab        *runtime.Tab
	term       *terminal
	monitoring *observability.MonitoringManager
}

// handle returns true when the user asked to leave.
func (c *client) handle(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := c.tab.Session().Send(line)
		return false, err
	}

	command, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	session := c.tab.Session()

	switch strings.ToLower(command) {
	case "quit", "exit":
		return true, c.tab.Logout()
	case "who":
		session.RefreshRoster()
		c.term.showRoster()
	case "color":
		if err := session.ChangeColor(arg); err != nil {
			return false, err
		}
		c.term.info("Color changed to %s", arg)
	case "sound":
		enabled, err := parseSwitch(arg)
		if err != nil {
			return false, err
		}
		if err = session.SetSound(enabled); err != nil {
			return false, err
		}
		c.term.info("Sound notifications %s", arg)
	case "theme":
		if arg == "" {
			return false, fmt.Errorf("theme expects a name")
		}
		if err := session.SetTheme(arg); err != nil {
			return false, err
		}
		c.term.info("Theme set to %s", arg)
	case "prune":
		pruned, err := session.PruneRoster()
		if err != nil {
			return false, err
		}
		c.term.info("Removed %d stale users", pruned)
	case "clear":
		if err := session.ClearHistory(); err != nil {
			return false, err
		}
		c.term.timeline.Reset()
		c.term.info("History cleared")
	case "pause":
		c.term.timeline.SetAtBottom(false)
	case "follow":
		c.term.follow()
	case "history":
		n := 20
		if arg != "" {
			parsed, err := strconv.Atoi(arg)
			if err != nil {
				return false, fmt.Errorf("history expects a number, got %q", arg)
			}
			n = parsed
		}
		if c.term.timeline.Len() >= n {
			c.term.history(n)
			break
		}
		messages, err := session.History(n)
		if err != nil {
			return false, err
		}
		c.term.replay(messages)
	case "stats":
		process, err := observability.SelfStats()
		if err != nil {
			c.term.warn("Process stats unavailable: %v", err)
		}
		c.term.showStats(c.monitoring.GetLatest(), process)
	case "help":
		c.term.info("%s", helpText)
	default:
		return false, fmt.Errorf("unknown command /%s, try /help", command)
	}
	return false, nil
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}
