package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/store"
	"github.com/nhle/taskpulse/tests/testutil"
)

type fakeRemote struct {
	pref    *model.SoundPreference
	getErr  error
	putErr  error
	putLast *model.SoundPreference
	puts    int
}

func (f *fakeRemote) GetSoundPreference(context.Context) (*model.SoundPreference, error) {
	return f.pref, f.getErr
}

func (f *fakeRemote) PutSoundPreference(_ context.Context, p model.SoundPreference) error {
	f.puts++
	f.putLast = &p
	return f.putErr
}

func TestNew_MissingUsesDefaults(t *testing.T) {
	s := New(context.Background(), testutil.NewTestStore(t), nil, zap.NewNop())

	assert.Equal(t, LoadMissing, s.State())
	assert.Equal(t, model.DefaultSoundPreference(), s.Current())
}

func TestNew_CorruptAndOutdatedBlobsFailClosed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        "{{{",
		"unknown version": `{"version":99,"default_sound":"ping","critical_sound":"siren","volume":0.2}`,
		"legacy no tag":   `{"default_sound":"ping"}`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := testutil.NewTestStore(t)
			require.NoError(t, kv.SetValue(context.Background(), store.KeySoundPreference, raw))

			s := New(context.Background(), kv, nil, zap.NewNop())
			assert.Equal(t, LoadCorrupt, s.State())
			assert.Equal(t, model.DefaultSoundPreference(), s.Current())
		})
	}
}

func TestNew_UnreadableStorage(t *testing.T) {
	kv := testutil.NewFaultyStore(testutil.NewTestStore(t))
	kv.FailReads(true)

	s := New(context.Background(), kv, nil, zap.NewNop())
	assert.Equal(t, LoadCorrupt, s.State())
	assert.Equal(t, model.DefaultSoundPreference(), s.Current())
}

func TestUpdate_PersistsImmediatelyAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	remote := &fakeRemote{}
	s := New(ctx, kv, remote, zap.NewNop())

	require.NoError(t, s.SetSound(ctx, model.ChannelCritical, "siren"))
	require.NoError(t, s.SetSound(ctx, model.ChannelDefault, "ping"))
	require.NoError(t, s.SetVolume(ctx, 0.25))

	reloaded := New(ctx, kv, nil, zap.NewNop())
	assert.Equal(t, LoadOK, reloaded.State())
	assert.Equal(t, model.SoundPreference{
		DefaultSound:  "ping",
		CriticalSound: "siren",
		Volume:        0.25,
	}, reloaded.Current())
	assert.Equal(t, 3, remote.puts)
	assert.Equal(t, 0.25, remote.putLast.Volume)
}

func TestSetVolume_Clamps(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testutil.NewTestStore(t), nil, zap.NewNop())

	require.NoError(t, s.SetVolume(ctx, 3))
	assert.Equal(t, 1.0, s.Current().Volume)

	require.NoError(t, s.SetVolume(ctx, -0.5))
	assert.Equal(t, 0.0, s.Current().Volume)
}

func TestUpdate_RemoteFailureKeepsLocalChange(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testutil.NewTestStore(t), &fakeRemote{putErr: errors.New("down")}, zap.NewNop())

	require.NoError(t, s.SetVolume(ctx, 0.1))
	assert.Equal(t, 0.1, s.Current().Volume)
}

func TestUpdate_LocalWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFaultyStore(testutil.NewTestStore(t))
	s := New(ctx, kv, nil, zap.NewNop())
	kv.FailWrites(true)

	err := s.SetVolume(ctx, 0.3)
	require.Error(t, err)
	assert.Equal(t, 0.3, s.Current().Volume, "next playback still uses the new volume")
}

func TestPull_AdoptsRemoteRecord(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	remote := &fakeRemote{pref: &model.SoundPreference{DefaultSound: "pop", Volume: 1.7}}
	s := New(ctx, kv, remote, zap.NewNop())

	require.NoError(t, s.Pull(ctx))

	got := s.Current()
	assert.Equal(t, "pop", got.DefaultSound)
	assert.Equal(t, model.CriticalSoundID, got.CriticalSound)
	assert.Equal(t, 1.0, got.Volume)

	reloaded := New(ctx, kv, nil, zap.NewNop())
	assert.Equal(t, got, reloaded.Current())
}

func TestPull_FailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testutil.NewTestStore(t), &fakeRemote{getErr: errors.New("offline")}, zap.NewNop())
	require.NoError(t, s.SetVolume(ctx, 0.5))

	require.Error(t, s.Pull(ctx))
	assert.Equal(t, 0.5, s.Current().Volume)
}
