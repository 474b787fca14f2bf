// Package sync drives periodic reconciliation with the server on
// independent cadences.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SyncState represents the current state of a cadence.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// String returns the state name.
func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single cadence.
type SyncStatus struct {
	Name     string
	State    SyncState
	LastSync time.Time
	Error    error
}

// defaultFetchTimeout is the maximum time allowed for a single fetch.
const defaultFetchTimeout = 30 * time.Second

// Cadence is one periodic fetch.
type Cadence struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) error

	// RunAtStart fetches once as soon as the scheduler starts.
	RunAtStart bool

	// WaitForFirstSuccess holds the ticker back until one fetch succeeded.
	// Failed initial fetches are retried with backoff.
	WaitForFirstSuccess bool
}

type cadenceEntry struct {
	Cadence
	trigger chan struct{}
}

// runHandle is one Start..Stop lifetime. done closes once every cadence
// goroutine of that run has returned.
type runHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs one goroutine per cadence. Fetches of a cadence run
// sequentially inside its goroutine, so at most one request per cadence is
// in flight; ticks that arrive meanwhile are coalesced.
type Scheduler struct {
	clock        clockwork.Clock
	logger       *zap.Logger
	fetchTimeout time.Duration
	newBackOff   func() backoff.BackOff

	mu       gosync.Mutex
	cadences []*cadenceEntry
	statuses map[string]*SyncStatus
	running  bool
	current  *runHandle
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFetchTimeout bounds every single fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithInitialBackOff sets the retry policy of WaitForFirstSuccess cadences.
func WithInitialBackOff(fn func() backoff.BackOff) Option {
	return func(s *Scheduler) { s.newBackOff = fn }
}

// New creates a Scheduler with no cadences.
func New(clock clockwork.Clock, logger *zap.Logger, opts ...Option) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		clock:        clock,
		logger:       logger,
		fetchTimeout: defaultFetchTimeout,
		newBackOff:   defaultInitialBackOff,
		statuses:     make(map[string]*SyncStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultInitialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Register adds a cadence. Cadences cannot be added while running.
func (s *Scheduler) Register(c Cadence) error {
	if c.Name == "" || c.Fetch == nil {
		return fmt.Errorf("cadence needs a name and a fetch function")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("cadence %s: interval must be positive", c.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cadence %s: scheduler already running", c.Name)
	}
	if _, dup := s.statuses[c.Name]; dup {
		return fmt.Errorf("cadence %s already registered", c.Name)
	}
	s.cadences = append(s.cadences, &cadenceEntry{Cadence: c})
	s.statuses[c.Name] = &SyncStatus{Name: c.Name, State: SyncIdle}
	return nil
}

// Start launches every cadence. The scheduler runs until Stop or Halt is
// called or ctx is cancelled. Goroutines of a previous run are waited for
// before new ones start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	prev := s.current
	s.mu.Unlock()
	if prev != nil {
		<-prev.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	run := &runHandle{cancel: cancel, done: make(chan struct{})}
	s.current = run
	s.running = true

	var wg gosync.WaitGroup
	for _, c := range s.cadences {
		trigger := make(chan struct{}, 1)
		c.trigger = trigger
		s.statuses[c.Name] = &SyncStatus{Name: c.Name, State: SyncIdle}
		wg.Add(1)
		go func(c *cadenceEntry) {
			defer wg.Done()
			s.run(ctx, c, trigger)
		}(c)
	}
	go func() {
		wg.Wait()
		close(run.done)
	}()
	return nil
}

// Halt cancels the current run without waiting for it. It is safe to call
// from inside a Fetch.
func (s *Scheduler) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.current.cancel()
}

// Stop cancels in-flight fetches and waits for every cadence goroutine to
// exit. It is safe to call when not running, and Start may be called again
// afterwards.
func (s *Scheduler) Stop() {
	s.Halt()

	s.mu.Lock()
	run := s.current
	s.mu.Unlock()
	if run != nil {
		<-run.done
	}
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger asks the named cadence to fetch now. It reports false when the
// scheduler is stopped or the cadence is unknown. Repeated triggers while
// a fetch is pending collapse into one.
func (s *Scheduler) Trigger(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	for _, c := range s.cadences {
		if c.Name != name {
			continue
		}
		select {
		case c.trigger <- struct{}{}:
		default:
			// Already pending.
		}
		return true
	}
	return false
}

// TriggerAll asks every cadence to fetch now.
func (s *Scheduler) TriggerAll() {
	s.mu.Lock()
	names := make([]string, len(s.cadences))
	for i, c := range s.cadences {
		names[i] = c.Name
	}
	s.mu.Unlock()
	for _, n := range names {
		s.Trigger(n)
	}
}

// Statuses returns the status of every cadence in registration order.
func (s *Scheduler) Statuses() []SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SyncStatus, 0, len(s.cadences))
	for _, c := range s.cadences {
		out = append(out, *s.statuses[c.Name])
	}
	return out
}

// run is the loop of a single cadence.
func (s *Scheduler) run(ctx context.Context, c *cadenceEntry, trigger <-chan struct{}) {
	switch {
	case c.WaitForFirstSuccess:
		if !s.initialLoad(ctx, c, trigger) {
			return
		}
	case c.RunAtStart:
		_ = s.fetch(ctx, c)
	}

	ticker := s.clock.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_ = s.fetch(ctx, c)
		case <-trigger:
			_ = s.fetch(ctx, c)
		}
	}
}

// initialLoad retries the first fetch until it succeeds. It returns false
// if the scheduler stopped first.
func (s *Scheduler) initialLoad(ctx context.Context, c *cadenceEntry, trigger <-chan struct{}) bool {
	b := s.newBackOff()
	b.Reset()
	for {
		if err := s.fetch(ctx, c); err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = c.Interval
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.clock.After(wait):
		case <-trigger:
		}
	}
}

// fetch performs a single fetch under the per-request timeout and records
// the outcome. Failures are logged, never surfaced.
func (s *Scheduler) fetch(ctx context.Context, c *cadenceEntry) error {
	s.setStatus(c.Name, SyncRunning, nil)

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	err := c.Fetch(fctx)
	if err != nil {
		if ctx.Err() != nil {
			// Stopped mid-fetch; not a sync.
			s.mu.Lock()
			if st, ok := s.statuses[c.Name]; ok {
				st.State = SyncIdle
			}
			s.mu.Unlock()
			return err
		}
		s.logger.Warn("poll failed", zap.String("cadence", c.Name), zap.Error(err))
		s.setStatus(c.Name, SyncError, err)
		return err
	}

	s.setStatus(c.Name, SyncIdle, nil)
	return nil
}

// setStatus updates the sync status for a cadence.
func (s *Scheduler) setStatus(name string, state SyncState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = s.clock.Now()
	}
}
