package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/nhle/taskpulse/internal/store"
)

// ErrInjected is returned by FaultyStore when a failure is switched on.
var ErrInjected = errors.New("injected storage failure")

// FaultyStore wraps a store.Store and fails reads or writes on demand.
type FaultyStore struct {
	store.Store

	mu        sync.Mutex
	failRead  bool
	failWrite bool
	writes    int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner store.Store) *FaultyStore {
	return &FaultyStore{Store: inner}
}

// FailReads toggles read failures.
func (f *FaultyStore) FailReads(on bool) {
	f.mu.Lock()
	f.failRead = on
	f.mu.Unlock()
}

// FailWrites toggles write failures.
func (f *FaultyStore) FailWrites(on bool) {
	f.mu.Lock()
	f.failWrite = on
	f.mu.Unlock()
}

// Writes returns the number of successful SetValue calls.
func (f *FaultyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// GetValue implements store.Store.
func (f *FaultyStore) GetValue(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	fail := f.failRead
	f.mu.Unlock()
	if fail {
		return "", ErrInjected
	}
	return f.Store.GetValue(ctx, key)
}

// SetValue implements store.Store.
func (f *FaultyStore) SetValue(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.failWrite
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	if err := f.Store.SetValue(ctx, key, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return nil
}
