package deadline

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/model"
)

// Dismissals is the persisted dismissal memory. Implemented by
// *ledger.Ledger.
type Dismissals interface {
	IsDismissed(taskID string) bool
	RecordDismissal(ctx context.Context, taskID string) error
}

// SoundTrigger plays an alert channel. Implemented by *sound.Player.
type SoundTrigger interface {
	Play(ch model.SoundChannel) bool
}

// gate is the one-shot session gate of the critical modal.
type gate int

const (
	gateNotShown gate = iota
	gateShowing
	gateDismissed
)

func (g gate) String() string {
	switch g {
	case gateShowing:
		return "showing"
	case gateDismissed:
		return "dismissed"
	default:
		return "not_shown"
	}
}

// Detector promotes at most one critical task per session. After the user
// dismisses it, no further automatic alert is shown until Reset.
type Detector struct {
	ledger Dismissals
	sound  SoundTrigger
	clock  clockwork.Clock
	logger *zap.Logger

	mu      sync.Mutex
	gate    gate
	current model.Task
}

// NewDetector creates a detector with an open gate. sound may be nil.
func NewDetector(ledger Dismissals, sound SoundTrigger, clock clockwork.Clock, logger *zap.Logger) *Detector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{ledger: ledger, sound: sound, clock: clock, logger: logger}
}

// Eligible returns the tasks that would qualify for the alert right now,
// in list order: not done, overdue or due within 24h, and not dismissed.
func (d *Detector) Eligible(tasks []model.Task) []model.Task {
	now := d.clock.Now()
	var out []model.Task
	for _, t := range tasks {
		if !IsCritical(t, now) {
			continue
		}
		if d.ledger != nil && d.ledger.IsDismissed(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Evaluate runs one detection pass. It returns the task promoted by this
// pass and true, or false when nothing new is shown. The first eligible
// task in list order wins and the critical sound plays once for it.
func (d *Detector) Evaluate(tasks []model.Task) (model.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gate != gateNotShown {
		return model.Task{}, false
	}
	eligible := d.Eligible(tasks)
	if len(eligible) == 0 {
		return model.Task{}, false
	}

	d.current = eligible[0]
	d.gate = gateShowing
	d.logger.Info("critical deadline alert",
		zap.String("task_id", d.current.ID),
		zap.Int("eligible", len(eligible)))
	if d.sound != nil {
		d.sound.Play(model.ChannelCritical)
	}
	return d.current, true
}

// Current returns the task whose alert is showing.
func (d *Detector) Current() (model.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != gateShowing {
		return model.Task{}, false
	}
	return d.current, true
}

// Dismiss records the showing task in the ledger and closes the gate for
// the rest of the session. The gate closes even if the ledger write fails.
func (d *Detector) Dismiss(ctx context.Context) (model.Task, error) {
	d.mu.Lock()
	if d.gate != gateShowing {
		d.mu.Unlock()
		return model.Task{}, nil
	}
	task := d.current
	d.current = model.Task{}
	d.gate = gateDismissed
	d.mu.Unlock()

	if d.ledger == nil {
		return task, nil
	}
	if err := d.ledger.RecordDismissal(ctx, task.ID); err != nil {
		return task, fmt.Errorf("recording dismissal: %w", err)
	}
	return task, nil
}

// Reset reopens the gate for a new session.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = gateNotShown
	d.current = model.Task{}
}

// State returns the gate state for display and logging.
func (d *Detector) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gate.String()
}
