package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Polling.UnreadInterval())
	assert.Equal(t, 4*time.Second, cfg.Polling.ConversationInterval())
	assert.Equal(t, 5*time.Minute, cfg.Polling.TaskInterval())
	assert.Equal(t, 30*time.Second, cfg.Polling.FetchTimeout())
	assert.Equal(t, 20, cfg.Polling.PageSize)
	assert.Equal(t, 2000, cfg.Sound.MinGapMs)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout())
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://tasks.example.com/api
polling:
  unread_interval_sec: 10
  page_size: 0
sound:
  command: paplay
  args: ["--volume={percent}", "{file}"]
`), 0o600))
	t.Setenv("TASKPULSE_POLLING_CONVERSATION_INTERVAL_SEC", "9")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Polling.UnreadInterval())
	assert.Equal(t, 9*time.Second, cfg.Polling.ConversationInterval())
	assert.Equal(t, 20, cfg.Polling.PageSize, "non-positive values fall back to defaults")
	assert.Equal(t, "paplay", cfg.Sound.Command)
	assert.Equal(t, []string{"--volume={percent}", "{file}"}, cfg.Sound.Args)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("polling: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Polling.UnreadIntervalSec = 45
	cfg.Sound.Command = "afplay"

	require.NoError(t, SaveConfig(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 45, loaded.Polling.UnreadIntervalSec)
	assert.Equal(t, "afplay", loaded.Sound.Command)
}
