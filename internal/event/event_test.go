package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskpulse/internal/model"
)

func drain(t *testing.T, b *Bus) []Event {
	t.Helper()
	var out []Event
	for b.Len() > 0 {
		e, ok := b.Next(context.Background())
		require.True(t, ok)
		out = append(out, e)
	}
	return out
}

func TestBus_NextReturnsInOrder(t *testing.T) {
	b := NewBus(4)
	b.Publish(Notice{Message: "one"})
	b.Publish(Toast{Notification: model.Notification{ID: "n1"}})

	events := drain(t, b)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].(Notice).Message)
	assert.Equal(t, "toast", Name(events[1]))
}

func TestBus_FullQueueKeepsAlertsAndNotices(t *testing.T) {
	b := NewBus(1)
	b.Publish(Notice{Message: "pending"})
	b.Publish(TasksChanged{})
	b.Publish(CriticalAlert{Task: model.Task{ID: "A"}})
	b.Publish(CriticalAlertCleared{TaskID: "A"})
	b.Publish(AuthRequired{})

	events := drain(t, b)
	require.Len(t, events, 5)
	assert.IsType(t, Notice{}, events[0])
	assert.IsType(t, TasksChanged{}, events[1])
	assert.Equal(t, "A", events[2].(CriticalAlert).Task.ID)
	assert.IsType(t, CriticalAlertCleared{}, events[3])
	assert.IsType(t, AuthRequired{}, events[4])
	assert.Zero(t, b.Dropped())
}

func TestBus_FullQueueDropsOldestToast(t *testing.T) {
	b := NewBus(2)
	b.Publish(Toast{Notification: model.Notification{ID: "old"}})
	b.Publish(Toast{Notification: model.Notification{ID: "mid"}})
	b.Publish(Toast{Notification: model.Notification{ID: "new"}})

	events := drain(t, b)
	require.Len(t, events, 2)
	assert.Equal(t, "mid", events[0].(Toast).Notification.ID)
	assert.Equal(t, "new", events[1].(Toast).Notification.ID)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestBus_SnapshotsCoalesceToLatest(t *testing.T) {
	b := NewBus(1)
	b.Publish(NotificationsChanged{Snapshot: model.NotificationSnapshot{Unread: 1}})
	b.Publish(NotificationsChanged{Snapshot: model.NotificationSnapshot{Unread: 2}})
	b.Publish(NotificationsChanged{Snapshot: model.NotificationSnapshot{Unread: 3}})

	events := drain(t, b)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].(NotificationsChanged).Snapshot.Unread)
}

func TestBus_NextWaitsForPublish(t *testing.T) {
	b := NewBus(4)
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Publish(Notice{Message: "late"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e, ok := b.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "late", e.(Notice).Message)
}

func TestBus_NextStopsOnCancel(t *testing.T) {
	b := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.Next(ctx)
	assert.False(t, ok)
}
