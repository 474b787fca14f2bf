// Package deadline finds tasks whose due date is close enough to warrant
// the critical alert, and classifies tasks into urgency tiers.
package deadline

import (
	"time"

	"github.com/nhle/taskpulse/internal/model"
)

// Tier is the urgency bucket of a task's due date.
type Tier int

const (
	TierSafe Tier = iota
	TierWarning
	TierUrgent
)

const (
	criticalWindow = 24 * time.Hour
	urgentWindow   = 3 * 24 * time.Hour
	warningWindow  = 7 * 24 * time.Hour
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierUrgent:
		return "urgent"
	case TierWarning:
		return "warning"
	default:
		return "safe"
	}
}

// Classify buckets task by how far its due date is from now. Overdue and
// due within three days is urgent, within seven days is warning. Tasks
// without a usable due date are safe.
func Classify(task model.Task, now time.Time) Tier {
	due, ok := task.Due()
	if !ok {
		return TierSafe
	}
	diff := due.Sub(now)
	switch {
	case diff <= urgentWindow:
		return TierUrgent
	case diff <= warningWindow:
		return TierWarning
	default:
		return TierSafe
	}
}

// IsCritical reports whether task is not done and is overdue or due within
// the next 24 hours.
func IsCritical(task model.Task, now time.Time) bool {
	if task.IsDone() {
		return false
	}
	due, ok := task.Due()
	if !ok {
		return false
	}
	return due.Sub(now) < criticalWindow
}
