// Package soundform is the settings form for alert sounds and volume.
package soundform

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/theme"
)

// SoundSavedMsg is dispatched when the user submits the form.
type SoundSavedMsg struct {
	Preference model.SoundPreference
}

// SoundFormCancelMsg is dispatched when the user cancels the form.
type SoundFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	defaultSound  string
	criticalSound string
	volume        string
}

// Model is the Bubble Tea model for the sound settings form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	sounds []string
	width  int
	height int
}

// New creates a form offering the given sound identifiers.
func New(sounds []string, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		sounds: sounds,
		width:  width,
		height: height,
	}
}

// Start initializes the form from the current preference.
func (m *Model) Start(current model.SoundPreference) tea.Cmd {
	m.fb.defaultSound = current.DefaultSound
	m.fb.criticalSound = current.CriticalSound
	m.fb.volume = strconv.Itoa(int(current.Volume*100 + 0.5))
	m.form = m.buildForm()
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

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return SoundFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Alert Sounds") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("New notification sound").
				Options(m.soundOptions()...).
				Value(&m.fb.defaultSound),
			huh.NewSelect[string]().
				Title("Critical deadline sound").
				Options(m.soundOptions()...).
				Value(&m.fb.criticalSound),
			huh.NewInput().
				Title("Volume").
				Placeholder("0-100").
				Value(&m.fb.volume).
				Validate(validateVolume),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) soundOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(m.sounds))
	for i, id := range m.sounds {
		opts[i] = huh.NewOption(id, id)
	}
	return opts
}

func (m Model) handleSubmit() tea.Cmd {
	pct, _ := parseVolume(m.fb.volume)
	pref := model.SoundPreference{
		DefaultSound:  m.fb.defaultSound,
		CriticalSound: m.fb.criticalSound,
		Volume:        float64(pct) / 100,
	}
	return func() tea.Msg { return SoundSavedMsg{Preference: pref} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func parseVolume(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
	if err != nil {
		return 0, fmt.Errorf("volume must be a number")
	}
	return n, nil
}

func validateVolume(s string) error {
	n, err := parseVolume(s)
	if err != nil {
		return err
	}
	if n < 0 || n > 100 {
		return fmt.Errorf("volume must be between 0 and 100")
	}
	return nil
}
