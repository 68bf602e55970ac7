package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// StreakStorage implements interfaces.StreakStorage as a single record.
type StreakStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewStreakStorage creates streak storage backed by BadgerDB.
func NewStreakStorage(db *BadgerDB, logger *common.Logger) *StreakStorage {
	return &StreakStorage{db: db, logger: logger}
}

// GetStreak returns the stored streak, or the zero state.
func (s *StreakStorage) GetStreak(_ context.Context) (models.StreakState, error) {
	var state models.StreakState
	err := s.db.Store().Get(models.StreakStateKey, &state)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return models.StreakState{}, nil
	}
	if err != nil {
		return models.StreakState{}, fmt.Errorf("failed to get streak: %w", err)
	}
	return state, nil
}

// UpdateStreak runs fn and the write in one read-write transaction. Badger
// aborts a conflicting concurrent transaction.
func (s *StreakStorage) UpdateStreak(_ context.Context, fn interfaces.StreakFunc) (models.StreakState, error) {
	var result models.StreakState
	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		var current models.StreakState
		err := s.db.Store().TxGet(tx, models.StreakStateKey, &current)
		if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}

		next, changed := fn(current)
		if !changed {
			result = current
			return nil
		}
		next.Key = models.StreakStateKey
		if err := s.db.Store().TxUpsert(tx, models.StreakStateKey, &next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return models.StreakState{}, fmt.Errorf("failed to update streak: %w", err)
	}
	return result, nil
}
