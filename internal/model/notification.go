package model

import "time"

// NotificationType enumerates the domain events that produce a notification.
type NotificationType string

const (
	NotificationAssignment NotificationType = "assignment"
	NotificationComment    NotificationType = "comment"
	NotificationDeadline   NotificationType = "deadline"
	NotificationMention    NotificationType = "mention"
	NotificationMessage    NotificationType = "message"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAssignment, NotificationComment, NotificationDeadline,
		NotificationMention, NotificationMessage:
		return true
	}
	return false
}

// EntityRef points at the domain object a notification is about
// (e.g., a task or a conversation).
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Actor is the user whose action triggered a notification.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Notification is a single item of the user's notification inbox.
type Notification struct {
	// ID is assigned by the server and stable for the item's lifetime.
	ID string `json:"id"`

	// Type is the kind of domain event that produced the notification.
	Type NotificationType `json:"type"`

	// Title is the one-line summary shown in lists and toasts.
	Title string `json:"title"`

	// Body is the optional longer text.
	Body *string `json:"body,omitempty"`

	// Entity is the optional linked object.
	Entity *EntityRef `json:"entity,omitempty"`

	// Actor is the user who caused the event, nil for system events.
	Actor *Actor `json:"actor,omitempty"`

	// CreatedAt is when the server created the notification.
	CreatedAt time.Time `json:"createdAt"`

	// ReadAt is nil while the notification is unread.
	ReadAt *time.Time `json:"readAt"`
}

// IsUnread reports whether the notification has not been read yet.
func (n Notification) IsUnread() bool {
	return n.ReadAt == nil
}

// NotificationPage is one page of the server's notification listing.
type NotificationPage struct {
	Items    []Notification `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// NotificationSnapshot is the client's view of the notification inbox.
// Items keep the server's recency order.
type NotificationSnapshot struct {
	Items    []Notification
	Total    int
	Unread   int
	Page     int
	PageSize int
}

// Clone returns a deep copy of the snapshot so callers can hold it while the
// directory keeps mutating its own copy.
func (s NotificationSnapshot) Clone() NotificationSnapshot {
	out := s
	if s.Items != nil {
		out.Items = make([]Notification, len(s.Items))
		copy(out.Items, s.Items)
		for i := range out.Items {
			if s.Items[i].ReadAt != nil {
				readAt := *s.Items[i].ReadAt
				out.Items[i].ReadAt = &readAt
			}
		}
	}
	return out
}

// CountUnread returns the number of loaded items without a read timestamp.
func (s NotificationSnapshot) CountUnread() int {
	n := 0
	for _, item := range s.Items {
		if item.IsUnread() {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the item with the given id, or -1.
func (s NotificationSnapshot) IndexOf(id string) int {
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
