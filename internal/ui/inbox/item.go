package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return i.Notification.Title }

// Title returns the notification title for the list.
func (i NotificationItem) Title() string { return i.Notification.Title }

// Description returns a short summary line for the list.
func (i NotificationItem) Description() string {
	parts := []string{string(i.Notification.Type)}
	if i.Notification.Actor != nil {
		parts = append(parts, i.Notification.Actor.Name)
	}
	parts = append(parts, relativeTime(i.Notification.CreatedAt, time.Now()))
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for notification rows.
type ItemDelegate struct {
	// now is injectable for tests.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotificationItem)
	if !ok {
		return
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	fmt.Fprint(w, renderLine(ni.Notification, index == m.Index(), now()))
}

func renderLine(n model.Notification, selected bool, now time.Time) string {
	marker := " "
	if n.IsUnread() {
		marker = lipgloss.NewStyle().Foreground(theme.ColorRed).Render("●")
	}

	kind := string(n.Type)
	label := theme.TypeLabelStyle(kind).Render(strings.ToUpper(kind)[:min(3, len(kind))])

	actor := ""
	if n.Actor != nil && n.Actor.Name != "" {
		actor = theme.DimmedStyle.Render(" " + n.Actor.Name)
	}

	when := theme.DimmedStyle.Render(relativeTime(n.CreatedAt, now))

	line := fmt.Sprintf("%s %s %s%s  %s", marker, label, n.Title, actor, when)
	if !n.IsUnread() {
		line = theme.DimmedStyle.Render(line)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
