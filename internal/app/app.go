package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/keys"
	"github.com/nhle/taskpulse/internal/model"
	appsync "github.com/nhle/taskpulse/internal/sync"
	"github.com/nhle/taskpulse/internal/theme"
	"github.com/nhle/taskpulse/internal/ui"
	"github.com/nhle/taskpulse/internal/ui/alert"
	"github.com/nhle/taskpulse/internal/ui/command"
	helpview "github.com/nhle/taskpulse/internal/ui/help"
	"github.com/nhle/taskpulse/internal/ui/inbox"
	"github.com/nhle/taskpulse/internal/ui/login"
	"github.com/nhle/taskpulse/internal/ui/soundform"
	"github.com/nhle/taskpulse/internal/ui/taskpanel"
)

// How long transient banners stay on screen.
const (
	toastTTL  = 6 * time.Second
	noticeTTL = 4 * time.Second
)

// eventMsg wraps a bus event for the Bubble Tea loop.
type eventMsg struct {
	event event.Event
}

// sessionStartedMsg is sent once Session.Start returned.
type sessionStartedMsg struct {
	firstRun bool
	err      error
}

// clearToastMsg and clearNoticeMsg expire a banner unless a newer one
// replaced it.
type clearToastMsg struct{ id int }
type clearNoticeMsg struct{ id int }

// actionFailedMsg carries the error of a command run off the UI goroutine.
type actionFailedMsg struct{ err error }

// tickMsg refreshes relative times and the sync status.
type tickMsg time.Time

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewHelp
	ViewSound
	ViewCommand
	ViewLogin
)

// Model is the root Bubble Tea model. It renders what the session
// publishes and turns key presses into session calls.
type Model struct {
	session      *Session
	ctx          context.Context
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	inbox        inbox.Model
	tasks        taskpanel.Model
	soundForm    soundform.Model
	helpView     helpview.Model
	commandView  command.Model
	loginForm    login.Model
	alert        alert.Model
	ready        bool
	started      bool
	unread       int
	toast        *model.Notification
	toastID      int
	notice       string
	noticeID     int
}

// New creates the root model for a session that has not been started yet.
func New(ctx context.Context, s *Session) Model {
	k := keys.DefaultKeyMap()
	return Model{
		session:     s,
		ctx:         ctx,
		currentView: ViewInbox,
		keys:        k,
		inbox:       inbox.New(k, 80, 22),
		tasks:       taskpanel.New(32, 22),
		soundForm:   soundform.New(s.Catalog.IDs(), 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80),
		loginForm:   login.New(80),
		alert:       alert.New(80),
	}
}

// Init starts the session and begins listening for its events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startSession(),
		m.waitForEvent(),
		tick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		// One line of the content area is reserved for banners.
		h := m.layout.ContentHeight() - 1
		m.inbox.SetSize(m.layout.MainWidth(), h)
		m.tasks.SetSize(m.layout.SideWidth(), h)
		m.helpView.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.soundForm.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.commandView.SetSize(m.layout.ContentWidth())
		m.loginForm.SetSize(m.layout.ContentWidth())
		m.alert.SetSize(m.layout.ContentWidth())
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sessionStartedMsg:
		m.started = true
		if msg.err != nil {
			m.notice = "Background sync unavailable: " + msg.err.Error()
		}
		if msg.firstRun {
			m.helpView.SetOnboarding(true)
			m.previousView = m.currentView
			m.currentView = ViewHelp
		}
		return m, nil

	case eventMsg:
		cmd := m.applyEvent(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = nil
		}
		return m, nil

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tickMsg:
		return m, tick()

	case actionFailedMsg:
		// A component normally published its own notice already.
		if m.notice != "" {
			return m, nil
		}
		return m, m.showNotice("Action failed: " + msg.err.Error())

	case login.TokenEnteredMsg:
		m.currentView = ViewInbox
		token := msg.Token
		return m, m.run(func(ctx context.Context) error {
			return m.session.Login(ctx, token)
		})

	case login.CancelMsg:
		m.currentView = ViewInbox
		return m, m.showNotice("Not signed in; polling is paused. Run \"login\" to retry.")

	case inbox.MarkReadRequestMsg:
		return m, m.run(func(ctx context.Context) error {
			return m.session.Directory.MarkAsRead(ctx, msg.ID)
		})

	case inbox.DeleteRequestMsg:
		return m, m.run(func(ctx context.Context) error {
			return m.session.Directory.RemoveNotification(ctx, msg.ID)
		})

	case soundform.SoundSavedMsg:
		m.currentView = ViewInbox
		pref := msg.Preference
		return m, m.run(func(ctx context.Context) error {
			return m.session.SaveSoundPreference(ctx, pref)
		})

	case soundform.SoundFormCancelMsg:
		m.currentView = ViewInbox
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		if m.currentView == ViewLogin {
			return m.updateActiveView(msg)
		}

		// The critical modal blocks the UI until it is dismissed.
		if m.alert.Showing() {
			switch {
			case key.Matches(msg, m.keys.Dismiss):
				m.alert.Hide()
				return m, m.run(m.session.Monitor.Dismiss)
			case key.Matches(msg, m.keys.Quit):
				return m, m.quit()
			}
			return m, nil
		}

		switch m.currentView {
		case ViewSound, ViewCommand:
			// Forms and the palette own every key.
			return m.updateActiveView(msg)

		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.helpView.SetOnboarding(false)
				m.currentView = m.previousView
				return m, nil
			}
			if key.Matches(msg, m.keys.Quit) {
				return m, m.quit()
			}
			return m, nil

		case ViewInbox:
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, m.quit()
			case key.Matches(msg, m.keys.Help):
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil
			case key.Matches(msg, m.keys.Command):
				m.previousView = m.currentView
				m.currentView = ViewCommand
				return m, m.commandView.Focus()
			case key.Matches(msg, m.keys.Sound):
				return m, m.openSoundForm()
			case key.Matches(msg, m.keys.Refresh):
				return m, m.run(m.session.Refresh)
			case key.Matches(msg, m.keys.MarkAllRead):
				return m, m.run(m.session.Directory.MarkAllAsRead)
			case key.Matches(msg, m.keys.ClearAll):
				return m, m.run(m.session.Directory.ClearAll)
			case key.Matches(msg, m.keys.LoadMore):
				return m, m.run(m.session.Directory.LoadMore)
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// applyEvent folds one session event into the view state.
func (m *Model) applyEvent(e event.Event) tea.Cmd {
	switch e := e.(type) {
	case event.NotificationsChanged:
		m.unread = e.Snapshot.Unread
		return m.inbox.SetSnapshot(e.Snapshot)

	case event.Toast:
		n := e.Notification
		m.toast = &n
		m.toastID++
		id := m.toastID
		return tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{id: id} })

	case event.Notice:
		return m.showNotice(e.Message)

	case event.AuthRequired:
		if m.currentView == ViewLogin {
			return nil
		}
		return m.openLogin("The server rejected the API token.")

	case event.ConversationsChanged:
		m.tasks.SetConversations(e.Conversations)

	case event.TasksChanged:
		m.tasks.SetTasks(e.Tasks)

	case event.CriticalAlert:
		m.alert.Show(e.Task)

	case event.CriticalAlertCleared:
		if m.alert.TaskID() == e.TaskID {
			m.alert.Hide()
		}
	}
	return nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewSound:
		m.soundForm, cmd = m.soundForm.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewLogin:
		m.loginForm, cmd = m.loginForm.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	badge := ""
	if m.unread > 0 {
		badge = fmt.Sprintf(" %d unread ", m.unread)
	}
	header := m.layout.RenderHeader("taskpulse", badge, m.syncStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	now := m.session.Now()
	if m.currentView == ViewLogin {
		return m.loginForm.View()
	}
	if m.alert.Showing() {
		return m.layout.RenderModal(m.alert.View(now))
	}

	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewSound:
		return m.soundForm.View()
	case ViewCommand:
		return lipgloss.JoinVertical(lipgloss.Left, m.commandView.View(), m.banner())
	default:
		main := m.layout.RenderColumns(m.inbox.View(), m.tasks.View(now))
		return lipgloss.JoinVertical(lipgloss.Left, main, m.banner())
	}
}

// banner renders the current notice, or else the current toast.
func (m Model) banner() string {
	switch {
	case m.notice != "":
		return theme.NoticeStyle.Render("! " + m.notice)
	case m.toast != nil:
		return theme.ToastStyle.Render("● " + m.toast.Title)
	default:
		return ""
	}
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	if !m.started {
		return "connecting"
	}
	if m.session.AuthLost() {
		return "⚠ signed out"
	}
	statuses := m.session.Scheduler.Statuses()

	running := 0
	var failing []string
	var last time.Time
	for _, s := range statuses {
		switch s.State {
		case appsync.SyncRunning:
			running++
		case appsync.SyncError:
			failing = append(failing, s.Name)
		}
		if s.LastSync.After(last) {
			last = s.LastSync
		}
	}

	if len(failing) > 0 {
		return "⚠ unreachable: " + strings.Join(failing, ", ")
	}
	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if last.IsZero() {
		return "idle"
	}
	return "synced " + last.Local().Format("15:04:05")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.currentView == ViewLogin {
		return "enter sign in | esc cancel"
	}
	if m.alert.Showing() {
		return "x dismiss | q quit"
	}
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewSound:
		return "enter next | esc cancel"
	default:
		return "q quit | ? help | m read | A read all | d delete | C clear | L more | r refresh | s sound"
	}
}

// openSoundForm switches to the settings form seeded with the current
// preference.
func (m *Model) openSoundForm() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewSound
	return m.soundForm.Start(m.session.Prefs.Current())
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "sync":
		return m.run(m.session.Refresh)
	case "read all":
		return m.run(m.session.Directory.MarkAllAsRead)
	case "clear", "clear all":
		return m.run(m.session.Directory.ClearAll)
	case "more", "load more":
		return m.run(m.session.Directory.LoadMore)
	case "sound", "sounds":
		return m.openSoundForm()
	case "login":
		return m.openLogin("")
	case "logout":
		s := m.session
		return tea.Sequence(m.run(s.Logout), m.quit())
	case "config save", "save config":
		return m.run(m.session.SaveConfig)
	case "help":
		m.previousView = ViewInbox
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return m.quit()
	default:
		return m.showNotice(fmt.Sprintf("Unknown command %q", cmd))
	}
}

// showNotice replaces the banner with msg until noticeTTL passes.
func (m *Model) showNotice(msg string) tea.Cmd {
	m.notice = msg
	m.noticeID++
	id := m.noticeID
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{id: id} })
}

// openLogin switches to the token prompt.
func (m *Model) openLogin(reason string) tea.Cmd {
	if m.currentView != ViewLogin {
		m.previousView = m.currentView
	}
	m.currentView = ViewLogin
	return m.loginForm.Start(reason)
}

// run executes fn off the UI goroutine. Components publish a Notice for
// the failures they expect; any error is also returned as actionFailedMsg
// so nothing fails silently. Cancellation at shutdown is not a failure.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := fn(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return actionFailedMsg{err: err}
	}
}

// startSession returns a command that starts background sync.
func (m Model) startSession() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		first := s.FirstRun(ctx)
		return sessionStartedMsg{firstRun: first, err: s.Start(ctx)}
	}
}

// quit stops the session before leaving the program.
func (m Model) quit() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		s.Stop()
		return tea.QuitMsg{}
	}
}

// waitForEvent blocks until the next session event.
func (m Model) waitForEvent() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		e, ok := s.NextEvent(ctx)
		if !ok {
			return nil
		}
		return eventMsg{event: e}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
