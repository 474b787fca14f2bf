package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds the connection settings for the SaaS REST API.
type APIConfig struct {
	// BaseURL is the root of the REST API (e.g., https://app.example.com/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP exchange.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a throttled or unavailable request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// PollingConfig holds the cadences of the background refresh loops.
type PollingConfig struct {
	UnreadIntervalSec       int `mapstructure:"unread_interval_sec" yaml:"unread_interval_sec"`
	ConversationIntervalSec int `mapstructure:"conversation_interval_sec" yaml:"conversation_interval_sec"`
	TaskIntervalSec         int `mapstructure:"task_interval_sec" yaml:"task_interval_sec"`
	FetchTimeoutSec         int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
	PageSize                int `mapstructure:"page_size" yaml:"page_size"`
}

// SoundConfig controls how alert sounds are located and played.
type SoundConfig struct {
	// AssetsDir is the directory holding the sound files.
	AssetsDir string `mapstructure:"assets_dir" yaml:"assets_dir"`

	// Command is an external player (e.g., paplay, afplay). Empty means
	// the terminal bell is used.
	Command string `mapstructure:"command" yaml:"command"`

	// Args are passed to Command; {file}, {volume} and {percent} are
	// substituted.
	Args []string `mapstructure:"args" yaml:"args"`

	// MinGapMs is the minimum time between two audible alerts.
	MinGapMs int `mapstructure:"min_gap_ms" yaml:"min_gap_ms"`
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the structured log output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// Theme is "default" or "mono" (no colors).
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Polling PollingConfig `mapstructure:"polling" yaml:"polling"`
	Sound   SoundConfig   `mapstructure:"sound" yaml:"sound"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// Timeout returns the bound of a single HTTP exchange.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// UnreadInterval returns the unread-count cadence.
func (c PollingConfig) UnreadInterval() time.Duration {
	return time.Duration(c.UnreadIntervalSec) * time.Second
}

// ConversationInterval returns the conversation-list cadence.
func (c PollingConfig) ConversationInterval() time.Duration {
	return time.Duration(c.ConversationIntervalSec) * time.Second
}

// TaskInterval returns the cadence of the task list refresh that feeds
// critical deadline detection.
func (c PollingConfig) TaskInterval() time.Duration {
	return time.Duration(c.TaskIntervalSec) * time.Second
}

// FetchTimeout returns the per-request timeout for polled fetches.
func (c PollingConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// ConfigDir returns ~/.config/taskpulse, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskpulse")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskpulse/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:3000/api",
			TimeoutSec: 15,
			MaxRetries: 3,
		},
		Polling: PollingConfig{
			UnreadIntervalSec:       30,
			ConversationIntervalSec: 4,
			TaskIntervalSec:         300,
			FetchTimeoutSec:         30,
			PageSize:                20,
		},
		Sound: SoundConfig{
			AssetsDir: filepath.Join(dir, "sounds"),
			MinGapMs:  2000,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "state.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "taskpulse.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// setDefaults mirrors defaultAppConfig so missing keys resolve to sensible values.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("polling.unread_interval_sec", d.Polling.UnreadIntervalSec)
	v.SetDefault("polling.conversation_interval_sec", d.Polling.ConversationIntervalSec)
	v.SetDefault("polling.task_interval_sec", d.Polling.TaskIntervalSec)
	v.SetDefault("polling.fetch_timeout_sec", d.Polling.FetchTimeoutSec)
	v.SetDefault("polling.page_size", d.Polling.PageSize)
	v.SetDefault("sound.assets_dir", d.Sound.AssetsDir)
	v.SetDefault("sound.command", d.Sound.Command)
	v.SetDefault("sound.args", d.Sound.Args)
	v.SetDefault("sound.min_gap_ms", d.Sound.MinGapMs)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("display.theme", d.Display.Theme)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKPULSE_ override file values
// (e.g., TASKPULSE_API_BASE_URL). If the file does not exist, defaults
// plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskpulse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces non-positive intervals with their defaults.
func (c *AppConfig) normalize() {
	d := defaultAppConfig()
	if c.Polling.UnreadIntervalSec <= 0 {
		c.Polling.UnreadIntervalSec = d.Polling.UnreadIntervalSec
	}
	if c.Polling.ConversationIntervalSec <= 0 {
		c.Polling.ConversationIntervalSec = d.Polling.ConversationIntervalSec
	}
	if c.Polling.TaskIntervalSec <= 0 {
		c.Polling.TaskIntervalSec = d.Polling.TaskIntervalSec
	}
	if c.Polling.FetchTimeoutSec <= 0 {
		c.Polling.FetchTimeoutSec = d.Polling.FetchTimeoutSec
	}
	if c.Polling.PageSize <= 0 {
		c.Polling.PageSize = d.Polling.PageSize
	}
	if c.Sound.MinGapMs < 0 {
		c.Sound.MinGapMs = d.Sound.MinGapMs
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = d.API.TimeoutSec
	}
	if c.API.MaxRetries < 0 {
		c.API.MaxRetries = 0
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("polling", cfg.Polling)
	v.Set("sound", cfg.Sound)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
