package deadline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/model"
)

// TaskLister fetches the user's assigned tasks.
type TaskLister interface {
	MyTasks(ctx context.Context) ([]model.Task, error)
}

// Monitor refreshes the task list and feeds it to the detector.
type Monitor struct {
	api      TaskLister
	detector *Detector
	pub      event.Publisher
	logger   *zap.Logger

	mu    sync.Mutex
	tasks []model.Task
}

// NewMonitor creates a monitor. pub and logger may be nil.
func NewMonitor(api TaskLister, detector *Detector, pub event.Publisher, logger *zap.Logger) *Monitor {
	if pub == nil {
		pub = event.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{api: api, detector: detector, pub: pub, logger: logger}
}

// Refresh fetches the task list. A silent refresh only updates the list;
// otherwise a detection pass runs. When the fetch fails no alert is shown.
func (m *Monitor) Refresh(ctx context.Context, silent bool) error {
	tasks, err := m.api.MyTasks(ctx)
	if err != nil {
		return fmt.Errorf("fetching my tasks: %w", err)
	}

	m.mu.Lock()
	m.tasks = tasks
	m.mu.Unlock()
	m.pub.Publish(event.TasksChanged{Tasks: append([]model.Task(nil), tasks...)})

	if silent {
		return nil
	}
	if task, ok := m.detector.Evaluate(tasks); ok {
		m.pub.Publish(event.CriticalAlert{Task: task})
	}
	return nil
}

// Tasks returns the last fetched task list.
func (m *Monitor) Tasks() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.tasks...)
}

// Dismiss closes the showing alert. A failed ledger write is surfaced as a
// notice; the alert is closed regardless.
func (m *Monitor) Dismiss(ctx context.Context) error {
	task, err := m.detector.Dismiss(ctx)
	if task.ID != "" {
		m.pub.Publish(event.CriticalAlertCleared{TaskID: task.ID})
	}
	if err != nil {
		m.logger.Warn("dismissing critical alert", zap.String("task_id", task.ID), zap.Error(err))
		m.pub.Publish(event.Notice{Message: "Could not remember the dismissal", Err: err})
		return err
	}
	return nil
}
