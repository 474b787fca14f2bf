package api

import (
	"context"
	"fmt"

	"github.com/nhle/taskpulse/internal/model"
)

// Conversations returns the live conversations of the signed-in user.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := c.get(ctx, "/conversations", nil, &convs); err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	return convs, nil
}
