package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
	lipgloss.SetColorProfile(termenv.TrueColor)

	require.NoError(t, Apply("default"))
	assert.Equal(t, termenv.TrueColor, lipgloss.ColorProfile())

	require.NoError(t, Apply(" Mono "))
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
	assert.Equal(t, "x", lipgloss.NewStyle().Foreground(ColorRed).Render("x"))

	assert.Error(t, Apply("neon"))
}

func TestStatusStyle_UnknownIsGray(t *testing.T) {
	assert.Equal(t, lipgloss.TerminalColor(ColorGray), StatusStyle("blocked").GetForeground())
	assert.Equal(t, lipgloss.TerminalColor(ColorYellow), StatusStyle("in_progress").GetForeground())
}
