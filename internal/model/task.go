package model

import (
	"strings"
	"time"
)

// Normalized status constants of the server's task workflow.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// dueDateLayouts are the formats accepted for a task's due date, tried in order.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Task is the subset of a server task this client consumes.
type Task struct {
	// ID is the server identifier of the task.
	ID string `json:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title"`

	// Status is the workflow status (use Status* constants).
	Status string `json:"status"`

	// DueDate is the raw due date as sent by the server. It is kept raw so
	// that a malformed value excludes the task instead of failing the
	// whole task list decode.
	DueDate *string `json:"dueDate"`
}

// IsDone reports whether the task is in the terminal status.
func (t Task) IsDone() bool {
	return strings.EqualFold(t.Status, StatusDone)
}

// Due parses DueDate. It returns false when the task has no due date or
// the value cannot be parsed.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(*t.DueDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if due, err := time.Parse(layout, raw); err == nil {
			return due, true
		}
	}
	return time.Time{}, false
}
