package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/api"
	"github.com/nhle/taskpulse/internal/deadline"
	"github.com/nhle/taskpulse/internal/directory"
	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/ledger"
	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/preference"
	"github.com/nhle/taskpulse/internal/sound"
	"github.com/nhle/taskpulse/internal/store"
	appsync "github.com/nhle/taskpulse/internal/sync"
)

// Cadence names registered with the scheduler.
const (
	CadenceUnread        = "unread"
	CadenceConversations = "conversations"
	CadenceTasks         = "tasks"
)

// API is everything the session consumes from the server. Implemented by
// *api.Client.
type API interface {
	directory.NotificationAPI
	directory.ConversationAPI
	deadline.TaskLister
	preference.Remote
	SetToken(token string)
}

// TokenStore persists the API token between runs. Implemented by
// credential.Keyring.
type TokenStore interface {
	Save(token string) error
	Forget() error
}

// ErrTokenRejected is returned by Login when the server refuses the token.
var ErrTokenRejected = errors.New("api token rejected")

// Deps are the collaborators a Session is built from.
type Deps struct {
	Config  model.AppConfig
	Store   store.Store
	API     API
	Backend sound.Backend
	Bus     *event.Bus
	Clock   clockwork.Clock
	Logger  *zap.Logger

	// Tokens is optional; without it Login and Logout only affect the
	// running client.
	Tokens TokenStore

	// ConfigPath is where SaveConfig writes the effective configuration.
	ConfigPath string
}

// Session owns every component of one signed-in run: the notification
// directory, the conversation feed, deadline detection and the polling
// scheduler. Start and Stop bound its lifetime.
type Session struct {
	cfg        model.AppConfig
	configPath string
	kv         store.Store
	api        API
	tokens     TokenStore
	bus        *event.Bus
	clock      clockwork.Clock
	logger     *zap.Logger

	// authLost is set once the server rejected the token in this run.
	authLost atomic.Bool

	Prefs         *preference.Store
	Ledger        *ledger.Ledger
	Catalog       *sound.Catalog
	Player        *sound.Player
	Directory     *directory.Directory
	Conversations *directory.ConversationFeed
	Detector      *deadline.Detector
	Monitor       *deadline.Monitor
	Scheduler     *appsync.Scheduler
}

// NewSession wires the components. Persisted state is loaded here; no
// network call is made until Start.
func NewSession(ctx context.Context, d Deps) (*Session, error) {
	if d.Store == nil || d.API == nil {
		return nil, fmt.Errorf("session needs a store and an API client")
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Bus == nil {
		d.Bus = event.NewBus(0)
	}
	if d.Backend == nil {
		d.Backend = sound.NewBellBackend(nil)
	}

	s := &Session{
		cfg:        d.Config,
		configPath: d.ConfigPath,
		kv:         d.Store,
		api:        d.API,
		tokens:     d.Tokens,
		bus:        d.Bus,
		clock:      d.Clock,
		logger:     d.Logger,
	}

	s.Prefs = preference.New(ctx, d.Store, d.API, d.Logger.Named("preference"))
	s.Ledger = ledger.New(ctx, d.Store, d.Clock, d.Logger.Named("ledger"))
	s.Catalog = sound.NewCatalog(d.Config.Sound.AssetsDir)
	s.Player = sound.NewPlayer(s.Prefs, s.Catalog, d.Backend,
		sound.WithClock(d.Clock),
		sound.WithLogger(d.Logger.Named("sound")),
		sound.WithMinGap(time.Duration(d.Config.Sound.MinGapMs)*time.Millisecond),
	)
	s.Directory = directory.New(d.API, s.Player, d.Bus,
		directory.WithClock(d.Clock),
		directory.WithLogger(d.Logger.Named("directory")),
		directory.WithPageSize(d.Config.Polling.PageSize),
	)
	s.Conversations = directory.NewConversationFeed(d.API, d.Bus)
	s.Detector = deadline.NewDetector(s.Ledger, s.Player, d.Clock, d.Logger.Named("deadline"))
	s.Monitor = deadline.NewMonitor(d.API, s.Detector, d.Bus, d.Logger.Named("deadline"))

	s.Scheduler = appsync.New(d.Clock, d.Logger.Named("sync"),
		appsync.WithFetchTimeout(d.Config.Polling.FetchTimeout()))
	cadences := []appsync.Cadence{
		{
			Name:       CadenceUnread,
			Interval:   d.Config.Polling.UnreadInterval(),
			RunAtStart: true,
			Fetch:      s.guard(s.Directory.RefreshUnreadCount),
		},
		{
			Name:                CadenceConversations,
			Interval:            d.Config.Polling.ConversationInterval(),
			WaitForFirstSuccess: true,
			Fetch:               s.guard(s.Conversations.Refresh),
		},
		{
			Name:       CadenceTasks,
			Interval:   d.Config.Polling.TaskInterval(),
			RunAtStart: true,
			Fetch: s.guard(func(ctx context.Context) error {
				return s.Monitor.Refresh(ctx, false)
			}),
		},
	}
	for _, c := range cadences {
		if err := s.Scheduler.Register(c); err != nil {
			return nil, fmt.Errorf("registering cadence: %w", err)
		}
	}
	return s, nil
}

// NextEvent blocks until the session publishes an event the UI renders,
// or ctx is done.
func (s *Session) NextEvent(ctx context.Context) (event.Event, bool) {
	return s.bus.Next(ctx)
}

// Start begins a session: it adopts the server-side sound settings,
// reloads the dismissal ledger, loads the first notification page and
// starts polling. Only a scheduler failure is returned; the initial fetches
// degrade to logged warnings. A rejected token leaves polling off and
// publishes AuthRequired.
func (s *Session) Start(ctx context.Context) error {
	s.authLost.Store(false)
	s.Directory.Reset()
	s.Conversations.Reset()
	s.Detector.Reset()
	s.Ledger.Reload(ctx)

	if err := s.Prefs.Pull(ctx); err != nil {
		s.checkAuth(err)
		s.logger.Warn("using local sound preference", zap.Error(err))
	}
	if err := s.Directory.Reload(ctx); err != nil {
		s.checkAuth(err)
		s.logger.Warn("initial notification load failed", zap.Error(err))
	}
	if s.authLost.Load() {
		return nil
	}

	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	s.logger.Info("session started",
		zap.Duration("unread_interval", s.cfg.Polling.UnreadInterval()),
		zap.Duration("conversation_interval", s.cfg.Polling.ConversationInterval()))
	return nil
}

// Stop ends polling and waits for any sound still playing.
func (s *Session) Stop() {
	s.Scheduler.Stop()
	s.Player.Wait()
	s.logger.Info("session stopped")
}

// Refresh reloads the first page and asks every cadence to poll now.
func (s *Session) Refresh(ctx context.Context) error {
	s.Scheduler.TriggerAll()
	if err := s.Directory.Reload(ctx); err != nil {
		if api.IsAuthError(err) {
			s.Scheduler.Halt()
			s.authLost.Store(true)
			s.bus.Publish(event.AuthRequired{Err: err})
			return err
		}
		s.bus.Publish(event.Notice{Message: "Could not refresh notifications", Err: err})
		return err
	}
	return nil
}

// AuthLost reports whether the server rejected the token since the last
// Start.
func (s *Session) AuthLost() bool {
	return s.authLost.Load()
}

// Login switches the client to token and restarts the session with it.
// The token is persisted only once the server accepted it.
func (s *Session) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is required")
	}
	s.Scheduler.Stop()
	s.api.SetToken(token)
	if err := s.Start(ctx); err != nil {
		return err
	}
	if s.authLost.Load() {
		return ErrTokenRejected
	}
	if s.tokens != nil {
		if err := s.tokens.Save(token); err != nil {
			s.bus.Publish(event.Notice{Message: "Signed in, but the token could not be saved", Err: err})
			return fmt.Errorf("saving api token: %w", err)
		}
	}
	s.logger.Info("signed in with a new token")
	return nil
}

// Logout stops polling, drops all server-derived state and forgets the
// stored token. The dismissal ledger and sound preference stay on disk.
func (s *Session) Logout(ctx context.Context) error {
	s.Stop()
	s.Directory.Reset()
	s.Conversations.Reset()
	s.Detector.Reset()
	s.api.SetToken("")
	if s.tokens != nil {
		if err := s.tokens.Forget(); err != nil {
			s.bus.Publish(event.Notice{Message: "Could not remove the stored token", Err: err})
			return fmt.Errorf("forgetting api token: %w", err)
		}
	}
	s.logger.Info("logged out")
	return nil
}

// SaveConfig writes the effective configuration to the config file so it
// can be edited by hand.
func (s *Session) SaveConfig(context.Context) error {
	if s.configPath == "" {
		return fmt.Errorf("no config path")
	}
	cfg := s.cfg
	if err := model.SaveConfig(s.configPath, &cfg); err != nil {
		s.bus.Publish(event.Notice{Message: "Could not save config", Err: err})
		return err
	}
	s.bus.Publish(event.Notice{Message: "Config written to " + s.configPath})
	return nil
}

// guard wraps a cadence fetch so a rejected token halts polling instead of
// retrying every interval.
func (s *Session) guard(fetch func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		err := fetch(ctx)
		s.checkAuth(err)
		return err
	}
}

// checkAuth halts the scheduler and asks for a new token the first time
// err is an AuthError. Halt does not wait, so it is safe inside a fetch.
func (s *Session) checkAuth(err error) {
	if !api.IsAuthError(err) || !s.authLost.CompareAndSwap(false, true) {
		return
	}
	s.logger.Warn("api token rejected, polling halted", zap.Error(err))
	s.Scheduler.Halt()
	s.bus.Publish(event.AuthRequired{Err: err})
}

// SaveSoundPreference stores pref and plays the default channel so the
// user hears the choice.
func (s *Session) SaveSoundPreference(ctx context.Context, pref model.SoundPreference) error {
	_, err := s.Prefs.Update(ctx, func(p *model.SoundPreference) { *p = pref })
	if err != nil {
		s.bus.Publish(event.Notice{Message: "Could not save sound settings", Err: err})
		return err
	}
	s.Player.Play(model.ChannelDefault)
	return nil
}

// FirstRun reports whether onboarding has never been shown and records
// that it now has been.
func (s *Session) FirstRun(ctx context.Context) bool {
	shown, err := store.Flag(ctx, s.kv, store.KeyOnboardingShown)
	if err != nil {
		s.logger.Warn("reading onboarding flag", zap.Error(err))
		return false
	}
	if shown {
		return false
	}
	if err := store.SetFlag(ctx, s.kv, store.KeyOnboardingShown, true); err != nil {
		s.logger.Warn("saving onboarding flag", zap.Error(err))
	}
	return true
}

// Now returns the session clock's time.
func (s *Session) Now() time.Time {
	return s.clock.Now()
}
