package model

import "time"

// Conversation is one entry of the live conversations feed.
type Conversation struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	LastMessage   *string    `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	UnreadCount   int        `json:"unreadCount"`
}
