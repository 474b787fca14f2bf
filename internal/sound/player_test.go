package sound

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskpulse/internal/model"
)

type staticPrefs struct {
	mu   sync.Mutex
	pref model.SoundPreference
}

func (s *staticPrefs) Current() model.SoundPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref
}

func (s *staticPrefs) set(p model.SoundPreference) {
	s.mu.Lock()
	s.pref = p
	s.mu.Unlock()
}

type played struct {
	id     string
	volume float64
}

type recordingBackend struct {
	mu    sync.Mutex
	plays []played
	err   error
}

func (r *recordingBackend) Play(_ context.Context, a Asset, v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays = append(r.plays, played{id: a.ID, volume: v})
	return r.err
}

func (r *recordingBackend) snapshot() []played {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]played(nil), r.plays...)
}

func newTestPlayer(prefs PreferenceSource, b Backend) (*Player, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewPlayer(prefs, NewCatalog("/assets"), b, WithClock(clock)), clock
}

func TestPlay_ChannelsUseConfiguredSounds(t *testing.T) {
	prefs := &staticPrefs{pref: model.SoundPreference{DefaultSound: "ping", CriticalSound: "siren", Volume: 0.4}}
	b := &recordingBackend{}
	p, clock := newTestPlayer(prefs, b)

	require.True(t, p.Play(model.ChannelDefault))
	clock.Advance(DefaultMinGap)
	require.True(t, p.Play(model.ChannelCritical))
	p.Wait()

	assert.Equal(t, []played{{"ping", 0.4}, {"siren", 0.4}}, b.snapshot())
}

func TestPlay_RateLimitDropsWithinGap(t *testing.T) {
	prefs := &staticPrefs{pref: model.DefaultSoundPreference()}
	b := &recordingBackend{}
	p, clock := newTestPlayer(prefs, b)

	assert.True(t, p.Play(model.ChannelDefault))
	clock.Advance(500 * time.Millisecond)
	assert.False(t, p.Play(model.ChannelCritical), "limit is shared across channels")
	clock.Advance(1499 * time.Millisecond)
	assert.False(t, p.Play(model.ChannelDefault))
	clock.Advance(time.Millisecond)
	assert.True(t, p.Play(model.ChannelDefault))
	p.Wait()

	assert.Len(t, b.snapshot(), 2)
}

func TestPlay_DroppedCallsDoNotExtendGap(t *testing.T) {
	prefs := &staticPrefs{pref: model.DefaultSoundPreference()}
	p, clock := newTestPlayer(prefs, &recordingBackend{})

	require.True(t, p.Play(model.ChannelDefault))
	clock.Advance(1900 * time.Millisecond)
	require.False(t, p.Play(model.ChannelDefault))
	clock.Advance(100 * time.Millisecond)
	assert.True(t, p.Play(model.ChannelDefault))
	p.Wait()
}

func TestPlay_UnknownSoundIsNoop(t *testing.T) {
	prefs := &staticPrefs{pref: model.SoundPreference{DefaultSound: "kazoo", CriticalSound: "alarm", Volume: 1}}
	b := &recordingBackend{}
	p, _ := newTestPlayer(prefs, b)

	assert.False(t, p.Play(model.ChannelDefault))
	assert.True(t, p.Play(model.ChannelCritical), "no-op does not consume the rate limit")
	p.Wait()
	assert.Equal(t, []played{{"alarm", 1}}, b.snapshot())
}

func TestPlay_ZeroVolumeIsSilent(t *testing.T) {
	prefs := &staticPrefs{pref: model.SoundPreference{DefaultSound: "chime", CriticalSound: "alarm", Volume: 0}}
	b := &recordingBackend{}
	p, _ := newTestPlayer(prefs, b)

	assert.False(t, p.Play(model.ChannelDefault))
	p.Wait()
	assert.Empty(t, b.snapshot())
}

func TestPlay_ReadsPreferenceAtEveryCall(t *testing.T) {
	prefs := &staticPrefs{pref: model.DefaultSoundPreference()}
	b := &recordingBackend{}
	p, clock := newTestPlayer(prefs, b)

	require.True(t, p.Play(model.ChannelDefault))
	prefs.set(model.SoundPreference{DefaultSound: "pop", CriticalSound: "alarm", Volume: 0.2})
	clock.Advance(DefaultMinGap)
	require.True(t, p.Play(model.ChannelDefault))
	p.Wait()

	assert.Equal(t, []played{{"chime", model.DefaultVolume}, {"pop", 0.2}}, b.snapshot())
}

func TestPlay_BackendErrorIsSwallowed(t *testing.T) {
	prefs := &staticPrefs{pref: model.DefaultSoundPreference()}
	b := &recordingBackend{err: errors.New("no audio device")}
	p, _ := newTestPlayer(prefs, b)

	assert.True(t, p.Play(model.ChannelDefault))
	p.Wait()
	assert.Len(t, b.snapshot(), 1)
}

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog("/opt/sounds")

	a, ok := c.Resolve("bell")
	require.True(t, ok)
	assert.Equal(t, "/opt/sounds/bell.wav", a.Path)

	_, ok = c.Resolve("")
	assert.False(t, ok)

	assert.Equal(t, []string{"alarm", "bell", "chime", "ping", "pop", "siren", "urgent"}, c.IDs())
}

func TestBellBackend_WritesBell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewBellBackend(&buf).Play(context.Background(), Asset{ID: "chime"}, 1))
	assert.Equal(t, "\a", buf.String())
}

func TestCommandBackend_ExpandsPlaceholders(t *testing.T) {
	c := CommandBackend{Command: "paplay", Args: []string{"--volume={percent}", "--gain={volume}", "{file}"}}
	got := c.expand(Asset{ID: "pop", Path: "/s/pop.wav"}, 0.25)
	assert.Equal(t, []string{"--volume=25", "--gain=0.25", "/s/pop.wav"}, got)

	assert.Equal(t, []string{"/s/pop.wav"}, CommandBackend{Command: "afplay"}.expand(Asset{Path: "/s/pop.wav"}, 1))
}

func TestCommandBackend_RequiresCommand(t *testing.T) {
	err := CommandBackend{}.Play(context.Background(), Asset{ID: "pop", Path: "/s/pop.wav"}, 1)
	assert.Error(t, err)
}
