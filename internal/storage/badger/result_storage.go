package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResultStorage implements interfaces.ResultStorage, one record per store.
type ResultStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewResultStorage creates result storage backed by BadgerDB.
func NewResultStorage(db *BadgerDB, logger *common.Logger) *ResultStorage {
	return &ResultStorage{db: db, logger: logger}
}

// SaveResult overwrites the store's result.
func (s *ResultStorage) SaveResult(_ context.Context, r models.StoreResult) error {
	r.Amount = models.RoundCents(r.Amount)
	if err := s.db.Store().Upsert(r.Store, &r); err != nil {
		return fmt.Errorf("failed to save result for %s: %w", r.Store, err)
	}
	return nil
}

// GetResult loads the store's latest result.
func (s *ResultStorage) GetResult(_ context.Context, store string) (models.StoreResult, error) {
	var r models.StoreResult
	if err := s.db.Store().Get(store, &r); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.StoreResult{}, fmt.Errorf("result for %s: %w", store, interfaces.ErrNotFound)
		}
		return models.StoreResult{}, fmt.Errorf("failed to get result for %s: %w", store, err)
	}
	r.Store = store
	return r, nil
}

// ListResults returns every stored result ordered by store.
func (s *ResultStorage) ListResults(_ context.Context) ([]models.StoreResult, error) {
	var results []models.StoreResult
	if err := s.db.Store().Find(&results, nil); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Store < results[j].Store })
	return results, nil
}
