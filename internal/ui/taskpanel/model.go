// Package taskpanel renders the side panel: the user's open tasks colored
// by deadline tier, and the live conversation summary.
package taskpanel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/deadline"
	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/theme"
)

// maxTasks caps the rows shown so the panel fits small terminals.
const maxTasks = 12

// Model is a render-only view; the root model feeds it data.
type Model struct {
	tasks         []model.Task
	conversations []model.Conversation
	convLoaded    bool
	width         int
	height        int
}

// New creates an empty panel.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetTasks replaces the task list.
func (m *Model) SetTasks(tasks []model.Task) {
	m.tasks = tasks
}

// SetConversations replaces the conversation list.
func (m *Model) SetConversations(convs []model.Conversation) {
	m.conversations = convs
	m.convLoaded = true
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the panel as of now.
func (m Model) View(now time.Time) string {
	sections := []string{
		theme.HeaderStyle.Render("My tasks"),
		m.renderTasks(now),
		"",
		theme.HeaderStyle.Render("Conversations"),
		m.renderConversations(),
	}
	return theme.PanelStyle.
		Width(max(m.width-4, 10)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderTasks(now time.Time) string {
	var rows []string
	for _, t := range m.tasks {
		if t.IsDone() {
			continue
		}
		if len(rows) == maxTasks {
			rows = append(rows, theme.DimmedStyle.Render("…"))
			break
		}
		rows = append(rows, taskRow(t, now))
	}
	if len(rows) == 0 {
		return theme.DimmedStyle.Render("No open tasks")
	}
	return strings.Join(rows, "\n")
}

func taskRow(t model.Task, now time.Time) string {
	tier := deadline.Classify(t, now)
	due := "no due date"
	if d, ok := t.Due(); ok {
		due = dueLabel(d, now)
	}
	return fmt.Sprintf("%s %s%s %s",
		theme.TierStyle(tier.String()).Render("■"),
		t.Title,
		theme.StatusStyle(t.Status).Render(statusLabel(t.Status)),
		theme.DimmedStyle.Render(due))
}

// statusLabel shortens a workflow status for the narrow side panel.
func statusLabel(status string) string {
	switch status {
	case model.StatusInProgress:
		return "doing"
	case "":
		return "todo"
	default:
		return status
	}
}

// dueLabel describes a due date relative to now.
func dueLabel(due, now time.Time) string {
	d := due.Sub(now)
	switch {
	case d < 0:
		return "overdue"
	case d < time.Hour:
		return fmt.Sprintf("due in %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("due in %dh", int(d.Hours()))
	default:
		return "due " + due.Format("Jan 02")
	}
}

func (m Model) renderConversations() string {
	if !m.convLoaded {
		return theme.DimmedStyle.Render("Connecting...")
	}
	unread := 0
	for _, c := range m.conversations {
		unread += c.UnreadCount
	}
	summary := fmt.Sprintf("%d active, %d unread", len(m.conversations), unread)
	if unread > 0 {
		return lipgloss.NewStyle().Bold(true).Render(summary)
	}
	return theme.DimmedStyle.Render(summary)
}
