package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/taskpulse/internal/model"
)

type unreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

type markAllReadResponse struct {
	MarkedAsRead int `json:"markedAsRead"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ListNotifications returns one page of the user's notifications, most recent first.
func (c *Client) ListNotifications(ctx context.Context, page, pageSize int) (*model.NotificationPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var resp model.NotificationPage
	if err := c.get(ctx, "/notifications", q, &resp); err != nil {
		return nil, fmt.Errorf("listing notifications page %d: %w", page, err)
	}
	if resp.Items == nil {
		resp.Items = []model.Notification{}
	}
	return &resp, nil
}

// LatestNotification returns the most recent notification, or nil when the
// inbox is empty.
func (c *Client) LatestNotification(ctx context.Context) (*model.Notification, error) {
	page, err := c.ListNotifications(ctx, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return &page.Items[0], nil
}

// UnreadCount returns the server's authoritative unread count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.get(ctx, "/notifications/unread-count", nil, &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return resp.UnreadCount, nil
}

// MarkRead marks one notification as read and returns the updated item.
func (c *Client) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	var resp model.Notification
	path := "/notifications/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPatch, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return &resp, nil
}

// MarkAllRead marks every notification as read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var resp markAllReadResponse
	if err := c.do(ctx, http.MethodPatch, "/notifications/read-all", nil, &resp); err != nil {
		return 0, fmt.Errorf("marking all notifications as read: %w", err)
	}
	return resp.MarkedAsRead, nil
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) (bool, error) {
	var resp deleteResponse
	path := "/notifications/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return false, fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return resp.Deleted, nil
}

// DeleteAllNotifications clears the whole inbox.
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/notifications", nil, nil); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}
