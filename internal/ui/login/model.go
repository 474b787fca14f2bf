// Package login asks for a new API token after the server rejected the
// current one.
package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/theme"
)

// TokenEnteredMsg is dispatched when the user submits a token.
type TokenEnteredMsg struct {
	Token string
}

// CancelMsg is dispatched when the user leaves the form with esc.
type CancelMsg struct{}

// formBindings keeps the bound value on the heap across model copies.
type formBindings struct {
	token string
}

// Model is the token prompt.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	reason string
	width  int
}

// New creates an idle prompt.
func New(width int) Model {
	return Model{fb: &formBindings{}, width: width}
}

// Start resets the form. reason explains why a token is needed.
func (m *Model) Start(reason string) tea.Cmd {
	m.fb.token = ""
	m.reason = reason
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API token").
				Description("Create one under Settings > API tokens.").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token).
				Validate(validateToken),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		token := strings.TrimSpace(m.fb.token)
		m.form = nil
		return m, func() tea.Msg { return TokenEnteredMsg{Token: token} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Sign in")
	parts := []string{title}
	if m.reason != "" {
		parts = append(parts, theme.NoticeStyle.Render(m.reason))
	}
	parts = append(parts, "", m.form.View())
	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width int) {
	m.width = width
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 80)
}

func validateToken(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}
