package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/store"
	"github.com/nhle/taskpulse/tests/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestIsDismissed_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	l := New(ctx, testutil.NewTestStore(t), clock, zap.NewNop())

	assert.False(t, l.IsDismissed("task-a"))
	require.NoError(t, l.RecordDismissal(ctx, "task-a"))
	assert.True(t, l.IsDismissed("task-a"))

	clock.Advance(23*time.Hour + 59*time.Minute)
	assert.True(t, l.IsDismissed("task-a"))

	clock.Advance(2 * time.Minute) // T + 24h01m
	assert.False(t, l.IsDismissed("task-a"))
	assert.Equal(t, 1, l.Len(), "expired entries are not pruned")
}

func TestIsDismissed_ExactlyWindowIsExpired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	l := New(ctx, testutil.NewTestStore(t), clock, zap.NewNop())

	require.NoError(t, l.RecordDismissal(ctx, "a"))
	clock.Advance(Window)
	assert.False(t, l.IsDismissed("a"))
}

func TestRecordDismissal_UpsertsTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	l := New(ctx, testutil.NewTestStore(t), clock, zap.NewNop())

	require.NoError(t, l.RecordDismissal(ctx, "a"))
	clock.Advance(30 * time.Hour)
	require.NoError(t, l.RecordDismissal(ctx, "a"))

	at, ok := l.DismissedAt("a")
	require.True(t, ok)
	assert.True(t, at.Equal(t0.Add(30*time.Hour)))
	assert.True(t, l.IsDismissed("a"))
}

func TestLedger_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	kv := testutil.NewTestStore(t)

	require.NoError(t, New(ctx, kv, clock, zap.NewNop()).RecordDismissal(ctx, "a"))

	clock.Advance(time.Hour)
	again := New(ctx, kv, clock, zap.NewNop())
	assert.True(t, again.IsDismissed("a"))
	assert.False(t, again.IsDismissed("b"))
}

func TestLedger_CorruptStorageMeansNothingDismissed(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":         "not-json",
		"untagged legacy": `{"a": 1772355600000}`,
		"future version":  `{"version":2,"entries":{"a":1772355600000}}`,
		"wrong types":     `{"version":1,"entries":{"a":"yesterday"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := testutil.NewTestStore(t)
			require.NoError(t, kv.SetValue(ctx, store.KeyDismissals, raw))

			l := New(ctx, kv, clockwork.NewFakeClockAt(t0), zap.NewNop())
			assert.False(t, l.IsDismissed("a"))
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestLedger_UnreadableStorage(t *testing.T) {
	kv := testutil.NewFaultyStore(testutil.NewTestStore(t))
	kv.FailReads(true)

	l := New(context.Background(), kv, clockwork.NewFakeClockAt(t0), zap.NewNop())
	assert.False(t, l.IsDismissed("a"))
}

func TestRecordDismissal_WriteFailureStillSuppressesInProcess(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFaultyStore(testutil.NewTestStore(t))
	l := New(ctx, kv, clockwork.NewFakeClockAt(t0), zap.NewNop())
	kv.FailWrites(true)

	err := l.RecordDismissal(ctx, "a")
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.True(t, l.IsDismissed("a"))
}
