// Package ledger remembers which critical deadline alerts the user dismissed.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/store"
)

// Window is how long a dismissal suppresses the alert for its task.
const Window = 24 * time.Hour

// schemaVersion is the version written into the persisted blob.
const schemaVersion = 1

// blob is the persisted representation: task id -> epoch milliseconds.
type blob struct {
	Version int              `json:"version"`
	Entries map[string]int64 `json:"entries"`
}

// Ledger is a time-boxed, per-task dismissal memory that survives restarts.
// Entries are never pruned; an entry older than Window is simply ignored.
type Ledger struct {
	kv     store.Store
	clock  clockwork.Clock
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]int64
}

// New creates a ledger and loads the persisted blob. Unreadable or corrupt
// storage degrades to an empty ledger.
func New(ctx context.Context, kv store.Store, clock clockwork.Clock, logger *zap.Logger) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{kv: kv, clock: clock, logger: logger}
	l.Reload(ctx)
	return l
}

// Reload replaces the in-memory entries with the persisted blob.
func (l *Ledger) Reload(ctx context.Context) {
	entries := l.read(ctx)
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

func (l *Ledger) read(ctx context.Context) map[string]int64 {
	raw, err := l.kv.GetValue(ctx, store.KeyDismissals)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]int64{}
	}
	if err != nil {
		l.logger.Warn("dismissal ledger unreadable, treating as empty", zap.Error(err))
		return map[string]int64{}
	}

	var b blob
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		l.logger.Warn("dismissal ledger corrupt, treating as empty", zap.Error(err))
		return map[string]int64{}
	}
	if b.Version != schemaVersion {
		l.logger.Warn("dismissal ledger has unknown version, treating as empty",
			zap.Int("version", b.Version))
		return map[string]int64{}
	}
	if b.Entries == nil {
		return map[string]int64{}
	}
	return b.Entries
}

// IsDismissed reports whether taskID was dismissed less than Window ago.
func (l *Ledger) IsDismissed(taskID string) bool {
	at, ok := l.DismissedAt(taskID)
	if !ok {
		return false
	}
	return l.clock.Now().Sub(at) < Window
}

// DismissedAt returns the recorded dismissal time, expired or not.
func (l *Ledger) DismissedAt(taskID string) (time.Time, bool) {
	l.mu.Lock()
	ms, ok := l.entries[taskID]
	l.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// RecordDismissal stores now under taskID and persists the whole ledger.
// The in-memory entry is kept even if persisting fails, so the alert stays
// suppressed for the rest of the process.
func (l *Ledger) RecordDismissal(ctx context.Context, taskID string) error {
	l.mu.Lock()
	l.entries[taskID] = l.clock.Now().UnixMilli()
	data, err := json.Marshal(blob{Version: schemaVersion, Entries: l.entries})
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding dismissal ledger: %w", err)
	}

	if err := l.kv.SetValue(ctx, store.KeyDismissals, string(data)); err != nil {
		l.logger.Warn("persisting dismissal ledger",
			zap.String("task_id", taskID), zap.Error(err))
		return fmt.Errorf("saving dismissal for task %s: %w", taskID, err)
	}
	return nil
}

// Len returns the number of entries, including expired ones.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
