// Package memory is an in-process storage backend used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
)

// Manager implements interfaces.StorageManager with maps.
type Manager struct {
	mu      sync.Mutex
	kv      map[string]string
	results map[string]models.StoreResult
	streak  models.StreakState
}

// NewManager creates an empty in-memory store.
func NewManager() *Manager {
	return &Manager{
		kv:      make(map[string]string),
		results: make(map[string]models.StoreResult),
	}
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return (*kvStorage)(m) }
func (m *Manager) ResultStorage() interfaces.ResultStorage     { return (*resultStorage)(m) }
func (m *Manager) StreakStorage() interfaces.StreakStorage     { return (*streakStorage)(m) }
func (m *Manager) Close() error                                { return nil }

type kvStorage Manager

func (s *kvStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return v, nil
}

func (s *kvStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *kvStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

func (s *kvStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.kv))
	for k, v := range s.kv {
		out[k] = v
	}
	return out, nil
}

type resultStorage Manager

func (s *resultStorage) SaveResult(_ context.Context, r models.StoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Amount = models.RoundCents(r.Amount)
	s.results[r.Store] = r
	return nil
}

func (s *resultStorage) GetResult(_ context.Context, store string) (models.StoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[store]
	if !ok {
		return models.StoreResult{}, interfaces.ErrNotFound
	}
	return r, nil
}

func (s *resultStorage) ListResults(_ context.Context) ([]models.StoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StoreResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Store < out[j].Store })
	return out, nil
}

type streakStorage Manager

func (s *streakStorage) GetStreak(_ context.Context) (models.StreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streak, nil
}

func (s *streakStorage) UpdateStreak(_ context.Context, fn interfaces.StreakFunc) (models.StreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := fn(s.streak)
	if changed {
		s.streak = next
	}
	return s.streak, nil
}
