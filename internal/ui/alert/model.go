// Package alert renders the critical deadline modal.
package alert

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/theme"
)

// Model holds the task being alerted on, if any.
type Model struct {
	task    model.Task
	showing bool
	width   int
}

// New creates a hidden modal.
func New(width int) Model {
	return Model{width: width}
}

// Show displays the modal for task.
func (m *Model) Show(task model.Task) {
	m.task = task
	m.showing = true
}

// Hide closes the modal.
func (m *Model) Hide() {
	m.task = model.Task{}
	m.showing = false
}

// Showing reports whether the modal is visible.
func (m Model) Showing() bool { return m.showing }

// TaskID returns the id of the alerted task.
func (m Model) TaskID() string { return m.task.ID }

// SetSize updates the width available to the modal.
func (m *Model) SetSize(width int) { m.width = width }

// View renders the modal box.
func (m Model) View(now time.Time) string {
	if !m.showing {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed).
		Render("Deadline approaching")

	body := lipgloss.NewStyle().Bold(true).Render(m.task.Title)
	when := theme.DimmedStyle.Render(describeDue(m.task, now))
	hint := theme.HelpStyle.Render("x dismiss for 24h")

	w := m.width / 2
	if w < 36 {
		w = 36
	}
	return theme.CriticalModalStyle.
		Width(w).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, when, "", hint))
}

func describeDue(t model.Task, now time.Time) string {
	due, ok := t.Due()
	if !ok {
		return ""
	}
	d := due.Sub(now)
	if d < 0 {
		return fmt.Sprintf("Overdue since %s", due.Local().Format("Jan 02 15:04"))
	}
	return fmt.Sprintf("Due %s (in %s)", due.Local().Format("Jan 02 15:04"), d.Round(time.Minute))
}
