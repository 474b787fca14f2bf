package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is the local persisted key/value storage shared by the preference
// store, the dismissal ledger and UI flags. Values are opaque blobs; each
// owner defines and versions its own schema.
type Store interface {
	// GetValue returns the blob stored under key, or ErrNotFound.
	GetValue(ctx context.Context, key string) (string, error)

	// SetValue upserts the blob stored under key.
	SetValue(ctx context.Context, key string, value string) error

	// DeleteValue removes key. Deleting a missing key is not an error.
	DeleteValue(ctx context.Context, key string) error
}

// Keys of the blobs persisted by this application.
const (
	KeySoundPreference = "notification.sound_preference"
	KeyDismissals      = "critical_alert.dismissals"
	KeyOnboardingShown = "onboarding.shown"
)
