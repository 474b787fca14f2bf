// Package preference keeps the user's alert sound selection and volume.
package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/store"
)

// schemaVersion is the version written into the persisted blob.
const schemaVersion = 1

// LoadState tells how the persisted preference was found at startup.
type LoadState int

const (
	// LoadMissing means nothing was stored yet; defaults are in effect.
	LoadMissing LoadState = iota
	// LoadOK means a valid blob was read.
	LoadOK
	// LoadCorrupt means a blob existed but was unreadable or of an
	// unknown version; defaults are in effect.
	LoadCorrupt
)

// Remote is the server-side copy of the settings record.
type Remote interface {
	GetSoundPreference(ctx context.Context) (*model.SoundPreference, error)
	PutSoundPreference(ctx context.Context, pref model.SoundPreference) error
}

// blob is the persisted, versioned representation.
type blob struct {
	Version       int     `json:"version"`
	DefaultSound  string  `json:"default_sound"`
	CriticalSound string  `json:"critical_sound"`
	Volume        float64 `json:"volume"`
}

// Store caches the sound preference in memory and writes every change
// through to local storage, then to the remote record.
type Store struct {
	kv     store.Store
	remote Remote
	logger *zap.Logger

	mu      sync.RWMutex
	current model.SoundPreference
	state   LoadState
}

// New loads the persisted preference. It never fails: unreadable storage
// yields the defaults. remote may be nil.
func New(ctx context.Context, kv store.Store, remote Remote, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		kv:      kv,
		remote:  remote,
		logger:  logger,
		current: model.DefaultSoundPreference(),
	}
	s.current, s.state = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) (model.SoundPreference, LoadState) {
	raw, err := s.kv.GetValue(ctx, store.KeySoundPreference)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultSoundPreference(), LoadMissing
	}
	if err != nil {
		s.logger.Warn("sound preference unreadable, using defaults", zap.Error(err))
		return model.DefaultSoundPreference(), LoadCorrupt
	}

	var b blob
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		s.logger.Warn("sound preference corrupt, using defaults", zap.Error(err))
		return model.DefaultSoundPreference(), LoadCorrupt
	}
	if b.Version != schemaVersion {
		s.logger.Warn("sound preference has unknown version, using defaults",
			zap.Int("version", b.Version))
		return model.DefaultSoundPreference(), LoadCorrupt
	}

	pref := model.SoundPreference{
		DefaultSound:  b.DefaultSound,
		CriticalSound: b.CriticalSound,
		Volume:        b.Volume,
	}
	if pref.DefaultSound == "" {
		pref.DefaultSound = model.DefaultSoundID
	}
	if pref.CriticalSound == "" {
		pref.CriticalSound = model.CriticalSoundID
	}
	return pref.Normalized(), LoadOK
}

// Current returns the preference in effect.
func (s *Store) Current() model.SoundPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// State reports the condition of the persisted blob: how it was found at
// startup, or LoadOK once a write succeeded.
func (s *Store) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update applies fn to a copy of the current preference, clamps it, makes it
// current, and persists it. The in-memory value stays updated even if the
// local write fails; that error is returned. A remote failure is only logged.
func (s *Store) Update(ctx context.Context, fn func(*model.SoundPreference)) (model.SoundPreference, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	next = next.Normalized()
	s.current = next
	s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		return next, err
	}
	s.push(ctx, next)
	return next, nil
}

// SetVolume sets the shared volume, clamped to [0,1].
func (s *Store) SetVolume(ctx context.Context, volume float64) error {
	_, err := s.Update(ctx, func(p *model.SoundPreference) { p.Volume = volume })
	return err
}

// SetSound selects the sound identifier for a channel.
func (s *Store) SetSound(ctx context.Context, ch model.SoundChannel, id string) error {
	_, err := s.Update(ctx, func(p *model.SoundPreference) {
		if ch == model.ChannelCritical {
			p.CriticalSound = id
		} else {
			p.DefaultSound = id
		}
	})
	return err
}

// Pull adopts the remote record, if any, and persists it locally.
func (s *Store) Pull(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	remote, err := s.remote.GetSoundPreference(ctx)
	if err != nil {
		s.logger.Warn("fetching remote sound preference", zap.Error(err))
		return fmt.Errorf("pulling sound preference: %w", err)
	}
	if remote == nil || (remote.DefaultSound == "" && remote.CriticalSound == "") {
		return nil
	}

	s.mu.Lock()
	next := *remote
	if next.DefaultSound == "" {
		next.DefaultSound = s.current.DefaultSound
	}
	if next.CriticalSound == "" {
		next.CriticalSound = s.current.CriticalSound
	}
	next = next.Normalized()
	s.current = next
	s.mu.Unlock()

	return s.persist(ctx, next)
}

func (s *Store) persist(ctx context.Context, pref model.SoundPreference) error {
	data, err := json.Marshal(blob{
		Version:       schemaVersion,
		DefaultSound:  pref.DefaultSound,
		CriticalSound: pref.CriticalSound,
		Volume:        pref.Volume,
	})
	if err != nil {
		return fmt.Errorf("encoding sound preference: %w", err)
	}
	if err := s.kv.SetValue(ctx, store.KeySoundPreference, string(data)); err != nil {
		s.logger.Warn("persisting sound preference", zap.Error(err))
		return fmt.Errorf("saving sound preference: %w", err)
	}
	s.mu.Lock()
	s.state = LoadOK
	s.mu.Unlock()
	return nil
}

func (s *Store) push(ctx context.Context, pref model.SoundPreference) {
	if s.remote == nil {
		return
	}
	if err := s.remote.PutSoundPreference(ctx, pref); err != nil {
		s.logger.Warn("syncing sound preference to server", zap.Error(err))
	}
}
