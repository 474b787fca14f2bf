// Package directory holds the client's view of the notification inbox and
// the live conversation feed, reconciled against the server by polling.
package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/api"
	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/model"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 20

// NotificationAPI is the subset of the server client the directory needs.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, page, pageSize int) (*model.NotificationPage, error)
	LatestNotification(ctx context.Context) (*model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id string) (bool, error)
	DeleteAllNotifications(ctx context.Context) error
}

// SoundTrigger plays an alert channel. Implemented by *sound.Player.
type SoundTrigger interface {
	Play(ch model.SoundChannel) bool
}

// Directory is the authoritative client-side notification snapshot.
//
// Mutations are applied optimistically and rolled back when the server
// call fails. Poll responses carry a sequence number; a response older
// than one already applied is discarded.
type Directory struct {
	api      NotificationAPI
	sound    SoundTrigger
	pub      event.Publisher
	clock    clockwork.Clock
	logger   *zap.Logger
	pageSize int

	mu   sync.Mutex
	snap model.NotificationSnapshot
	// rev changes whenever snap changes; a rollback only restores its
	// snapshot if nothing else touched the directory in between.
	rev uint64
	// initialized is set by the first applied unread count.
	initialized bool

	unreadSeq     uint64
	unreadApplied uint64
	pageSeq       uint64
	pageApplied   uint64
	// gen is bumped on every page-1 replacement; appends requested under an
	// older generation are dropped.
	gen uint64
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock injects the clock used to stamp optimistic reads.
func WithClock(c clockwork.Clock) Option {
	return func(d *Directory) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

// WithPageSize sets the page size used by Reload and LoadMore.
func WithPageSize(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// New creates an empty directory. sound and pub may be nil.
func New(api NotificationAPI, sound SoundTrigger, pub event.Publisher, opts ...Option) *Directory {
	if pub == nil {
		pub = event.Discard
	}
	d := &Directory{
		api:      api,
		sound:    sound,
		pub:      pub,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.snap.Items = []model.Notification{}
	d.snap.PageSize = d.pageSize
	return d
}

// Snapshot returns a copy of the current state.
func (d *Directory) Snapshot() model.NotificationSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap.Clone()
}

// HasMore reports whether the server holds items beyond the loaded pages.
func (d *Directory) HasMore() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snap.Items) < d.snap.Total
}

// Reset forgets all state, including the first-poll marker. Used when a
// session ends.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = model.NotificationSnapshot{Items: []model.Notification{}, PageSize: d.pageSize}
	d.initialized = false
	d.rev++
	d.gen++
	// Responses for requests issued before the reset must not be applied.
	d.unreadApplied = d.unreadSeq
	d.pageApplied = d.pageSeq
	d.publishLocked()
}

// Reload fetches page 1 with the configured page size.
func (d *Directory) Reload(ctx context.Context) error {
	return d.FetchPage(ctx, 1, d.pageSize)
}

// LoadMore fetches the page after the last loaded one. A failure is
// surfaced as a notice since it is user initiated.
func (d *Directory) LoadMore(ctx context.Context) error {
	d.mu.Lock()
	next := d.snap.Page + 1
	d.mu.Unlock()
	if next < 2 {
		next = 1
	}
	if err := d.FetchPage(ctx, next, d.pageSize); err != nil {
		d.notice("Could not load more notifications", err)
		return err
	}
	return nil
}

// FetchPage requests one page. Page 1 replaces the snapshot, later pages
// are appended. Total is always taken from the response.
func (d *Directory) FetchPage(ctx context.Context, page, pageSize int) error {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = d.pageSize
	}

	d.mu.Lock()
	var seq, gen uint64
	if page == 1 {
		d.pageSeq++
		seq = d.pageSeq
	}
	gen = d.gen
	d.mu.Unlock()

	resp, err := d.api.ListNotifications(ctx, page, pageSize)
	if err != nil {
		return fmt.Errorf("fetching notifications page %d: %w", page, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if page == 1 {
		if seq <= d.pageApplied {
			d.logger.Debug("dropping stale notifications page", zap.Uint64("seq", seq))
			return nil
		}
		d.pageApplied = seq
		d.replaceLocked(resp, pageSize)
	} else {
		if gen != d.gen {
			d.logger.Debug("dropping page from an older listing", zap.Int("page", page))
			return nil
		}
		d.appendLocked(resp, page, pageSize)
	}
	d.rev++
	d.publishLocked()
	return nil
}

func (d *Directory) replaceLocked(resp *model.NotificationPage, pageSize int) {
	items := resp.Items
	if items == nil {
		items = []model.Notification{}
	}
	d.gen++
	d.snap.Items = items
	d.snap.Total = resp.Total
	d.snap.Page = 1
	d.snap.PageSize = pageSize

	computed := d.snap.CountUnread()
	if computed == d.snap.Unread {
		return
	}
	// A partial first page cannot see unread items beyond it, so a lower
	// count does not override the server's authoritative figure.
	partial := len(items) < resp.Total
	if partial && d.initialized && computed < d.snap.Unread {
		return
	}
	d.snap.Unread = computed
}

func (d *Directory) appendLocked(resp *model.NotificationPage, page, pageSize int) {
	seen := make(map[string]struct{}, len(d.snap.Items))
	for _, item := range d.snap.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range resp.Items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		d.snap.Items = append(d.snap.Items, item)
	}
	d.snap.Total = resp.Total
	if page > d.snap.Page {
		d.snap.Page = page
	}
	d.snap.PageSize = pageSize
}

// RefreshUnreadCount polls the authoritative unread count. A strictly
// higher count than the one held means new notifications arrived: one
// default sound is played and the latest item is surfaced as a toast. The
// first count after initialization never plays a sound.
func (d *Directory) RefreshUnreadCount(ctx context.Context) error {
	d.mu.Lock()
	d.unreadSeq++
	seq := d.unreadSeq
	d.mu.Unlock()

	count, err := d.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("fetching unread count: %w", err)
	}
	if count < 0 {
		count = 0
	}

	d.mu.Lock()
	if seq <= d.unreadApplied {
		d.mu.Unlock()
		d.logger.Debug("dropping stale unread count", zap.Uint64("seq", seq), zap.Int("count", count))
		return nil
	}
	d.unreadApplied = seq
	prev := d.snap.Unread
	first := !d.initialized
	d.initialized = true
	arrived := !first && count > prev
	if count != prev {
		d.snap.Unread = count
		d.rev++
		d.publishLocked()
	}
	d.mu.Unlock()

	if !arrived {
		return nil
	}

	if d.sound != nil {
		d.sound.Play(model.ChannelDefault)
	}
	latest, err := d.api.LatestNotification(ctx)
	if err != nil {
		d.logger.Warn("fetching latest notification for toast", zap.Error(err))
		return nil
	}
	if latest != nil {
		d.pub.Publish(event.Toast{Notification: *latest})
	}
	return nil
}

// MarkAsRead stamps id as read locally, then tells the server. Marking an
// item that is already read changes nothing locally.
func (d *Directory) MarkAsRead(ctx context.Context, id string) error {
	d.mu.Lock()
	before, rev := d.beginLocked()
	if i := d.snap.IndexOf(id); i >= 0 && d.snap.Items[i].IsUnread() {
		now := d.clock.Now()
		d.snap.Items[i].ReadAt = &now
		if d.snap.Unread > 0 {
			d.snap.Unread--
		}
	}
	d.publishLocked()
	d.mu.Unlock()

	updated, err := d.api.MarkRead(ctx, id)
	if err != nil {
		d.rollback(ctx, before, rev, "Could not mark notification as read", err)
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}

	if updated != nil && updated.ReadAt != nil {
		d.mu.Lock()
		if i := d.snap.IndexOf(id); i >= 0 {
			readAt := *updated.ReadAt
			d.snap.Items[i].ReadAt = &readAt
			d.rev++
			d.publishLocked()
		}
		d.mu.Unlock()
	}
	return nil
}

// MarkAllAsRead stamps every unread item and zeroes the count locally,
// then tells the server. Calling it again leaves the state unchanged.
func (d *Directory) MarkAllAsRead(ctx context.Context) error {
	d.mu.Lock()
	before, rev := d.beginLocked()
	now := d.clock.Now()
	for i := range d.snap.Items {
		if d.snap.Items[i].IsUnread() {
			stamp := now
			d.snap.Items[i].ReadAt = &stamp
		}
	}
	d.snap.Unread = 0
	d.publishLocked()
	d.mu.Unlock()

	if _, err := d.api.MarkAllRead(ctx); err != nil {
		d.rollback(ctx, before, rev, "Could not mark all notifications as read", err)
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// RemoveNotification drops id locally, then deletes it on the server.
func (d *Directory) RemoveNotification(ctx context.Context, id string) error {
	d.mu.Lock()
	before, rev := d.beginLocked()
	if i := d.snap.IndexOf(id); i >= 0 {
		removed := d.snap.Items[i]
		d.snap.Items = append(d.snap.Items[:i:i], d.snap.Items[i+1:]...)
		if d.snap.Total > 0 {
			d.snap.Total--
		}
		if removed.IsUnread() && d.snap.Unread > 0 {
			d.snap.Unread--
		}
	}
	d.publishLocked()
	d.mu.Unlock()

	if _, err := d.api.DeleteNotification(ctx, id); err != nil {
		// Already gone on the server: the local removal stands.
		if api.IsNotFound(err) {
			d.logger.Debug("notification already deleted", zap.String("id", id))
			return nil
		}
		d.rollback(ctx, before, rev, "Could not delete notification", err)
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// ClearAll empties the inbox locally, then bulk-deletes on the server.
func (d *Directory) ClearAll(ctx context.Context) error {
	d.mu.Lock()
	before, rev := d.beginLocked()
	d.snap.Items = []model.Notification{}
	d.snap.Total = 0
	d.snap.Unread = 0
	d.snap.Page = 1
	d.gen++
	d.publishLocked()
	d.mu.Unlock()

	if err := d.api.DeleteAllNotifications(ctx); err != nil {
		d.rollback(ctx, before, rev, "Could not clear notifications", err)
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// beginLocked snapshots the state ahead of an optimistic mutation and
// returns the revision the mutation will produce.
func (d *Directory) beginLocked() (model.NotificationSnapshot, uint64) {
	before := d.snap.Clone()
	d.rev++
	return before, d.rev
}

// rollback restores before if the directory is still at rev. Otherwise
// other changes landed in between and page 1 is refetched instead.
func (d *Directory) rollback(ctx context.Context, before model.NotificationSnapshot, rev uint64, msg string, cause error) {
	d.logger.Warn(msg, zap.Error(cause))

	d.mu.Lock()
	restored := d.rev == rev
	if restored {
		d.snap = before
		d.rev++
		d.publishLocked()
	}
	d.mu.Unlock()

	if !restored {
		if err := d.Reload(ctx); err != nil {
			d.logger.Warn("refetching notifications after failed mutation", zap.Error(err))
		}
	}
	d.notice(msg, cause)
}

func (d *Directory) notice(msg string, err error) {
	d.pub.Publish(event.Notice{Message: msg, Err: err})
}

// publishLocked must be called with mu held so snapshots reach the bus in
// the order they were produced.
func (d *Directory) publishLocked() {
	d.pub.Publish(event.NotificationsChanged{Snapshot: d.snap.Clone()})
}
