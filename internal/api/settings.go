package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/taskpulse/internal/model"
)

const settingsPath = "/users/me/notification-settings"

// GetSoundPreference reads the remote notification settings record.
func (c *Client) GetSoundPreference(ctx context.Context) (*model.SoundPreference, error) {
	var pref model.SoundPreference
	if err := c.get(ctx, settingsPath, nil, &pref); err != nil {
		return nil, fmt.Errorf("fetching notification settings: %w", err)
	}
	return &pref, nil
}

// PutSoundPreference replaces the remote notification settings record.
func (c *Client) PutSoundPreference(ctx context.Context, pref model.SoundPreference) error {
	if err := c.do(ctx, http.MethodPut, settingsPath, pref, nil); err != nil {
		return fmt.Errorf("saving notification settings: %w", err)
	}
	return nil
}
