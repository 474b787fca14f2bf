// Command taskpulse is a terminal client that keeps the notification inbox
// in sync and raises alerts for tasks that are about to miss their deadline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nhle/taskpulse/internal/api"
	"github.com/nhle/taskpulse/internal/app"
	"github.com/nhle/taskpulse/internal/credential"
	"github.com/nhle/taskpulse/internal/event"
	"github.com/nhle/taskpulse/internal/model"
	"github.com/nhle/taskpulse/internal/sound"
	"github.com/nhle/taskpulse/internal/store"
	"github.com/nhle/taskpulse/internal/theme"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "taskpulse:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal.
	_ = godotenv.Load()

	configPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := theme.Apply(cfg.Display.Theme); err != nil {
		return fmt.Errorf("display.theme: %w", err)
	}

	logger, err := createLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens := credential.Keyring{}
	token, err := loadToken(tokens)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.API.BaseURL, token,
		api.WithTimeout(cfg.API.Timeout()),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithLogger(logger.Named("api")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := app.NewSession(ctx, app.Deps{
		Config:  *cfg,
		Store:   st,
		API:     client,
		Backend: soundBackend(cfg.Sound),
		Bus:     event.NewBus(128),
		Logger:  logger,

		Tokens:     tokens,
		ConfigPath: configPath,
	})
	if err != nil {
		return err
	}

	logger.Info("starting", zap.String("api", cfg.API.BaseURL))
	p := tea.NewProgram(app.New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		session.Stop()
		return fmt.Errorf("running ui: %w", err)
	}
	session.Stop()
	return nil
}

// loadToken returns the API token from the environment or the keyring,
// prompting for it on first use.
func loadToken(tokens credential.Keyring) (string, error) {
	if token := strings.TrimSpace(os.Getenv("TASKPULSE_API_TOKEN")); token != "" {
		return token, nil
	}
	token, err := credential.Get(credential.TokenKey)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return "", err
	}

	err = huh.NewInput().
		Title("API token").
		Description("Create one under Settings > API tokens. It is kept in your system keyring.").
		EchoMode(huh.EchoModePassword).
		Value(&token).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("token is required")
			}
			return nil
		}).
		Run()
	if err != nil {
		return "", fmt.Errorf("reading api token: %w", err)
	}
	token = strings.TrimSpace(token)
	if err := tokens.Save(token); err != nil {
		return "", err
	}
	return token, nil
}

func soundBackend(cfg model.SoundConfig) sound.Backend {
	if cfg.Command == "" {
		return sound.NewBellBackend(nil)
	}
	return sound.CommandBackend{Command: cfg.Command, Args: cfg.Args}
}

// createLogger writes JSON logs to the configured file; the terminal
// belongs to the UI.
func createLogger(cfg model.LogConfig) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch cfg.Level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	output := "stderr"
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		output = cfg.File
	}

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}
	return config.Build()
}
