package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/keys"
	"github.com/nhle/taskpulse/internal/theme"
)

// welcome is shown above the shortcuts the first time the app runs.
const welcome = "Welcome to taskpulse. New notifications play a sound and " +
	"pop up at the bottom of the screen. Tasks due within 24 hours raise " +
	"a critical alert once per session."

// Model is the help overlay view.
type Model struct {
	keys       *keys.KeyMap
	help       help.Model
	onboarding bool
	width      int
	height     int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetOnboarding toggles the first-run welcome text.
func (m *Model) SetOnboarding(on bool) {
	m.onboarding = on
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Keyboard Shortcuts")}
	if m.onboarding {
		parts = append(parts, lipgloss.NewStyle().
			Width(max(m.width-8, 20)).
			MarginBottom(1).
			Render(welcome))
	}
	m.help.Width = m.width - 4
	parts = append(parts, m.help.View(m.keys), "", theme.HelpStyle.Render("press ? or esc to close"))

	return theme.PanelStyle.
		Width(max(m.width-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
