package api

import (
	"context"
	"fmt"

	"github.com/nhle/taskpulse/internal/model"
)

// MyTasks returns the tasks assigned to the signed-in user.
func (c *Client) MyTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, "/tasks/mine", nil, &tasks); err != nil {
		return nil, fmt.Errorf("fetching my tasks: %w", err)
	}
	return tasks, nil
}
