package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/model"
)

var errServer = errors.New("server unavailable")

type unreadReply struct {
	count int
	err   error
	wait  chan struct{}
}

// fakeAPI serves canned replies. Fields are guarded by mu; gate channels
// let a test hold a call in flight.
type fakeAPI struct {
	mu sync.Mutex

	pages    map[int]*model.NotificationPage
	pageErr  error
	pageWait map[int]chan struct{}
	lists    int

	unread      []unreadReply
	unreadCalls int

	latest      *model.Notification
	latestCalls int

	mutationErr  error
	mutationWait chan struct{}
	calls        []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{pages: map[int]*model.NotificationPage{}, pageWait: map[int]chan struct{}{}}
}

func (f *fakeAPI) ListNotifications(_ context.Context, page, pageSize int) (*model.NotificationPage, error) {
	f.mu.Lock()
	f.lists++
	resp, err, wait := f.pages[page], f.pageErr, f.pageWait[page]
	f.mu.Unlock()
	if wait != nil {
		<-wait
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &model.NotificationPage{Page: page, PageSize: pageSize}, nil
	}
	return resp, nil
}

func (f *fakeAPI) LatestNotification(context.Context) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	return f.latest, nil
}

func (f *fakeAPI) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	f.unreadCalls++
	if len(f.unread) == 0 {
		f.mu.Unlock()
		return 0, fmt.Errorf("no unread reply queued")
	}
	r := f.unread[0]
	f.unread = f.unread[1:]
	f.mu.Unlock()
	if r.wait != nil {
		<-r.wait
	}
	return r.count, r.err
}

func (f *fakeAPI) mutation(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err, wait := f.mutationErr, f.mutationWait
	f.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return err
}

func (f *fakeAPI) MarkRead(_ context.Context, id string) (*model.Notification, error) {
	return nil, f.mutation("read " + id)
}

func (f *fakeAPI) MarkAllRead(context.Context) (int, error) {
	return 0, f.mutation("read-all")
}

func (f *fakeAPI) DeleteNotification(_ context.Context, id string) (bool, error) {
	err := f.mutation("delete " + id)
	return err == nil, err
}

func (f *fakeAPI) DeleteAllNotifications(context.Context) error {
	return f.mutation("delete-all")
}

func (f *fakeAPI) queueUnread(replies ...unreadReply) {
	f.mu.Lock()
	f.unread = append(f.unread, replies...)
	f.mu.Unlock()
}

func (f *fakeAPI) counts() (lists, unreadCalls, latestCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, f.unreadCalls, f.latestCalls
}

type countingSound struct {
	mu    sync.Mutex
	plays []model.SoundChannel
}

func (s *countingSound) Play(ch model.SoundChannel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = append(s.plays, ch)
	return true
}

func (s *countingSound) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plays)
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(e event.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) toasts() []event.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Toast
	for _, e := range r.events {
		if t, ok := e.(event.Toast); ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *recorder) notices() []event.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Notice
	for _, e := range r.events {
		if n, ok := e.(event.Notice); ok {
			out = append(out, n)
		}
	}
	return out
}

var baseTime = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func item(id string, read bool) model.Notification {
	n := model.Notification{
		ID:        id,
		Type:      model.NotificationAssignment,
		Title:     "Notification " + id,
		CreatedAt: baseTime,
	}
	if read {
		at := baseTime.Add(time.Minute)
		n.ReadAt = &at
	}
	return n
}

func page(n, total int, items ...model.Notification) *model.NotificationPage {
	return &model.NotificationPage{Items: items, Total: total, Page: n, PageSize: 20}
}
