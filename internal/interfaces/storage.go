package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/storetally/internal/models"
)

// ErrNotFound is returned by storage lookups for a missing record.
var ErrNotFound = errors.New("not found")

// StorageManager provides access to domain-specific storage interfaces.
// Backends: badger (default), file, sqlite, memory.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	ResultStorage() ResultStorage
	StreakStorage() StreakStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// ResultStorage keeps the latest StoreResult per store.
type ResultStorage interface {
	// SaveResult overwrites the stored result for r.Store.
	SaveResult(ctx context.Context, r models.StoreResult) error
	// GetResult returns ErrNotFound when the store has no result.
	GetResult(ctx context.Context, store string) (models.StoreResult, error)
	ListResults(ctx context.Context) ([]models.StoreResult, error)
}

// StreakFunc computes the next streak state. It reports false when nothing changed.
type StreakFunc func(current models.StreakState) (models.StreakState, bool)

// StreakStorage keeps the single streak record.
type StreakStorage interface {
	// GetStreak returns the zero state when none has been stored.
	GetStreak(ctx context.Context) (models.StreakState, error)
	// UpdateStreak runs fn inside the backend's single-writer section and
	// persists the result when fn reports a change.
	UpdateStreak(ctx context.Context, fn StreakFunc) (models.StreakState, error)
}
