package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskpulse/internal/model"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", "secret", WithMaxRetries(2))
}

func TestClient_ListNotificationsSendsAuthAndQuery(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		_, _ = w.Write([]byte(`{"items":[{"id":"n1","type":"mention","title":"hi",
			"createdAt":"2026-01-02T03:04:05Z","readAt":null}],"total":11,"page":2,"pageSize":10}`))
	})

	page, err := c.ListNotifications(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "n1", page.Items[0].ID)
	assert.Equal(t, model.NotificationMention, page.Items[0].Type)
	assert.True(t, page.Items[0].IsUnread())
	assert.Equal(t, 11, page.Total)
}

func TestClient_UnreadCount(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/unread-count", r.URL.Path)
		_, _ = w.Write([]byte(`{"unreadCount":7}`))
	})

	n, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestClient_MutationsUseExpectedVerbs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.EscapedPath())
		mu.Unlock()
		switch r.URL.Path {
		case "/api/notifications/a b/read":
			_, _ = w.Write([]byte(`{"id":"a b","type":"comment","title":"t","createdAt":"2026-01-01T00:00:00Z","readAt":"2026-01-01T01:00:00Z"}`))
		case "/api/notifications/read-all":
			_, _ = w.Write([]byte(`{"markedAsRead":3}`))
		case "/api/notifications/x":
			_, _ = w.Write([]byte(`{"deleted":true}`))
		case "/api/notifications":
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	n, err := c.MarkRead(ctx, "a b")
	require.NoError(t, err)
	assert.False(t, n.IsUnread())

	marked, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	deleted, err := c.DeleteNotification(ctx, "x")
	require.NoError(t, err)
	assert.True(t, deleted)

	require.NoError(t, c.DeleteAllNotifications(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"PATCH /api/notifications/a%20b/read",
		"PATCH /api/notifications/read-all",
		"DELETE /api/notifications/x",
		"DELETE /api/notifications",
	}, seen)
}

func TestClient_UnauthorizedIsAuthError(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.UnreadCount(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), calls.Load(), "401 must not be retried")
}

func TestClient_NotFoundCarriesServerMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"statusCode":404,"message":"Notification not found","error":"Not Found"}`))
	})

	_, err := c.MarkRead(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Notification not found")
}

func TestClient_RetriesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"unreadCount":1}`))
	})

	n, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "t", WithMaxRetries(1))

	_, err := c.UnreadCount(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ContextCancelStopsRetrying(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.UnreadCount(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_SoundPreferenceRoundTrip(t *testing.T) {
	var stored model.SoundPreference
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me/notification-settings", r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(stored)
		}
	})
	ctx := context.Background()

	want := model.SoundPreference{DefaultSound: "ping", CriticalSound: "siren", Volume: 0.4}
	require.NoError(t, c.PutSoundPreference(ctx, want))

	got, err := c.GetSoundPreference(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestClient_MyTasksKeepsRawDueDate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/mine", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"t1","title":"A","status":"in_progress","dueDate":"not a date"},
			{"id":"t2","title":"B","status":"done","dueDate":null}]`))
	})

	tasks, err := c.MyTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	_, ok := tasks[0].Due()
	assert.False(t, ok)
	assert.True(t, tasks[1].IsDone())
}

func TestClient_SetTokenAppliesToNextRequest(t *testing.T) {
	var seen atomic.Value
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"unreadCount":0}`))
	})

	c.SetToken("rotated")
	_, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer rotated", seen.Load())
}
