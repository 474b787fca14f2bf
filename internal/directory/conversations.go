package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/model"
)

// ConversationAPI fetches the live conversation list.
type ConversationAPI interface {
	Conversations(ctx context.Context) ([]model.Conversation, error)
}

// ConversationFeed holds the most recent conversation list. Like the
// unread count, each poll carries a sequence number and stale responses
// are discarded.
type ConversationFeed struct {
	api ConversationAPI
	pub event.Publisher

	mu      sync.Mutex
	items   []model.Conversation
	loaded  bool
	seq     uint64
	applied uint64
}

// NewConversationFeed creates an empty feed. pub may be nil.
func NewConversationFeed(api ConversationAPI, pub event.Publisher) *ConversationFeed {
	if pub == nil {
		pub = event.Discard
	}
	return &ConversationFeed{api: api, pub: pub}
}

// Refresh fetches the conversation list and replaces the held one.
func (f *ConversationFeed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	items, err := f.api.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("fetching conversations: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq <= f.applied {
		return nil
	}
	f.applied = seq
	f.items = items
	f.loaded = true
	f.pub.Publish(event.ConversationsChanged{Conversations: f.copyLocked()})
	return nil
}

// Loaded reports whether at least one fetch succeeded.
func (f *ConversationFeed) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Snapshot returns a copy of the held conversations.
func (f *ConversationFeed) Snapshot() []model.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyLocked()
}

// UnreadTotal sums the unread counters of all conversations.
func (f *ConversationFeed) UnreadTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.items {
		n += c.UnreadCount
	}
	return n
}

// Reset drops the held list and ignores responses still in flight.
func (f *ConversationFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.loaded = false
	f.applied = f.seq
}

func (f *ConversationFeed) copyLocked() []model.Conversation {
	out := make([]model.Conversation, len(f.items))
	copy(out, f.items)
	return out
}
