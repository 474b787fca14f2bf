// Package event carries state changes from the sync core to the UI.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nhle/taskpulse/internal/model"
)

// Event is any message published on the bus.
type Event interface {
	eventName() string
}

// NotificationsChanged is published whenever the directory snapshot changes.
type NotificationsChanged struct {
	Snapshot model.NotificationSnapshot
}

// Toast surfaces a newly arrived notification.
type Toast struct {
	Notification model.Notification
}

// Notice is a short transient message, mostly for a failed user action.
type Notice struct {
	Message string
	Err     error
}

// ConversationsChanged is published after a conversation poll was applied.
type ConversationsChanged struct {
	Conversations []model.Conversation
}

// TasksChanged is published after the user's task list was refreshed.
type TasksChanged struct {
	Tasks []model.Task
}

// CriticalAlert asks the UI to show the critical deadline modal for Task.
type CriticalAlert struct {
	Task model.Task
}

// CriticalAlertCleared is published when the shown modal was dismissed.
type CriticalAlertCleared struct {
	TaskID string
}

// AuthRequired is published when the server rejected the API token.
// Polling is halted until a new token is supplied.
type AuthRequired struct {
	Err error
}

func (NotificationsChanged) eventName() string { return "notifications_changed" }
func (Toast) eventName() string                { return "toast" }
func (Notice) eventName() string               { return "notice" }
func (ConversationsChanged) eventName() string { return "conversations_changed" }
func (TasksChanged) eventName() string         { return "tasks_changed" }
func (CriticalAlert) eventName() string        { return "critical_alert" }
func (CriticalAlertCleared) eventName() string { return "critical_alert_cleared" }
func (AuthRequired) eventName() string         { return "auth_required" }

// Name returns a stable identifier for logging.
func Name(e Event) string {
	return e.eventName()
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(e Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Bus is a non-blocking event queue. Publishers never wait on a slow
// consumer. Snapshot events (notifications, conversations, tasks) coalesce
// so only the latest pending one of each kind is kept. When more than size
// events are pending the oldest toast is dropped. Every other kind is
// always delivered.
type Bus struct {
	size   int
	notify chan struct{}

	mu      sync.Mutex
	pending []Event
	dropped atomic.Uint64
}

// NewBus creates a bus holding up to size pending droppable events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{size: size, notify: make(chan struct{}, 1)}
}

// Publish queues e without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	if !b.coalesceLocked(e) {
		b.pending = append(b.pending, e)
		if len(b.pending) > b.size {
			b.evictLocked()
		}
	}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
		// Consumer already woken.
	}
}

// coalesceLocked replaces a pending snapshot event of the same kind.
func (b *Bus) coalesceLocked(e Event) bool {
	if !isSnapshot(e) {
		return false
	}
	for i, p := range b.pending {
		if p.eventName() == e.eventName() {
			b.pending[i] = e
			return true
		}
	}
	return false
}

// evictLocked drops the oldest toast, if any.
func (b *Bus) evictLocked() {
	for i, p := range b.pending {
		if _, ok := p.(Toast); ok {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.dropped.Add(1)
			return
		}
	}
}

// Next blocks until an event is pending or ctx is done.
func (b *Bus) Next(ctx context.Context) (Event, bool) {
	for {
		b.mu.Lock()
		if len(b.pending) > 0 {
			e := b.pending[0]
			b.pending[0] = nil
			b.pending = b.pending[1:]
			b.mu.Unlock()
			return e, true
		}
		b.mu.Unlock()

		select {
		case <-b.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Len returns the number of pending events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped returns how many toasts were discarded because the queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func isSnapshot(e Event) bool {
	switch e.(type) {
	case NotificationsChanged, ConversationsChanged, TasksChanged:
		return true
	}
	return false
}
