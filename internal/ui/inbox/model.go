package inbox

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/keys"
	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/theme"
)

// MarkReadRequestMsg asks the root model to mark a notification read.
type MarkReadRequestMsg struct {
	ID string
}

// DeleteRequestMsg asks the root model to delete a notification.
type DeleteRequestMsg struct {
	ID string
}

// Model is the notification list view.
type Model struct {
	list    list.Model
	keys    *keys.KeyMap
	hasMore bool
	loaded  bool
	width   int
	height  int
}

// New creates an empty inbox.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-1)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, keys: k, width: width, height: height}
}

// SetSnapshot replaces the rendered items, keeping the cursor in range.
func (m *Model) SetSnapshot(snap model.NotificationSnapshot) tea.Cmd {
	items := make([]list.Item, len(snap.Items))
	for i, n := range snap.Items {
		items[i] = NotificationItem{Notification: n}
	}
	m.hasMore = len(snap.Items) < snap.Total
	m.loaded = true
	cmd := m.list.SetItems(items)
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	return cmd
}

// SelectedID returns the id of the focused notification.
func (m Model) SelectedID() (string, bool) {
	item, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return "", false
	}
	return item.Notification.ID, true
}

// Update handles messages for the inbox.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.MarkRead):
			if id, ok := m.SelectedID(); ok {
				return m, func() tea.Msg { return MarkReadRequestMsg{ID: id} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if id, ok := m.SelectedID(); ok {
				return m, func() tea.Msg { return DeleteRequestMsg{ID: id} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	view := m.list.View()
	if m.hasMore {
		view = lipgloss.JoinVertical(lipgloss.Left, view,
			theme.HelpStyle.Render(fmt.Sprintf("  %d loaded, L for more", len(m.list.Items()))))
	}
	return view
}

// renderEmptyState shows guidance text when the inbox is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if !m.loaded {
		return style.Render("Loading notifications...")
	}
	return style.Render("You're all caught up.\n\nPress r to refresh.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}
