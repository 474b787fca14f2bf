package sound

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/model"
)

// DefaultMinGap is the minimum spacing between two triggered sounds.
const DefaultMinGap = 2000 * time.Millisecond

const playTimeout = 15 * time.Second

// PreferenceSource supplies the sound preference read at every play.
type PreferenceSource interface {
	Current() model.SoundPreference
}

// Player fires sounds with a process-wide rate limit shared by both
// channels. Calls inside the gap are dropped, not queued.
type Player struct {
	prefs   PreferenceSource
	catalog *Catalog
	backend Backend
	clock   clockwork.Clock
	logger  *zap.Logger
	minGap  time.Duration

	mu      sync.Mutex
	last    time.Time
	hasLast bool

	wg sync.WaitGroup
}

// Option configures a Player.
type Option func(*Player)

// WithClock injects the clock used for rate limiting.
func WithClock(c clockwork.Clock) Option {
	return func(p *Player) { p.clock = c }
}

// WithLogger sets the logger for playback failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// WithMinGap overrides DefaultMinGap. Non-positive values are ignored.
func WithMinGap(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.minGap = d
		}
	}
}

// NewPlayer creates a Player.
func NewPlayer(prefs PreferenceSource, catalog *Catalog, backend Backend, opts ...Option) *Player {
	p := &Player{
		prefs:   prefs,
		catalog: catalog,
		backend: backend,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		minGap:  DefaultMinGap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play fires the sound configured for ch and reports whether playback was
// started. It never blocks on the backend and never returns an error.
func (p *Player) Play(ch model.SoundChannel) bool {
	pref := p.prefs.Current()
	asset, ok := p.catalog.Resolve(pref.SoundFor(ch))
	if !ok {
		p.logger.Debug("unknown sound id, skipping",
			zap.String("channel", string(ch)), zap.String("sound", pref.SoundFor(ch)))
		return false
	}
	if pref.Volume <= 0 {
		return false
	}

	p.mu.Lock()
	now := p.clock.Now()
	if p.hasLast && now.Sub(p.last) < p.minGap {
		p.mu.Unlock()
		return false
	}
	p.last = now
	p.hasLast = true
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		if err := p.backend.Play(ctx, asset, pref.Volume); err != nil {
			p.logger.Warn("sound playback failed",
				zap.String("channel", string(ch)),
				zap.String("sound", asset.ID),
				zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until every started playback has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}
