// Package file stores results as one JSON file per store plus streak.json.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
)

const (
	resultsDir = "results"
	streakFile = "streak.json"
	lockFile   = "streak.lock"
	kvFile     = "kv.json"
)

var (
	// LockTimeout bounds how long UpdateStreak waits for another writer's lock file.
	LockTimeout = 10 * time.Second
	// StaleLockAge is the age after which a lock file is assumed to be left by a
	// crashed writer and removed.
	StaleLockAge = 2 * time.Minute
)

// Manager implements interfaces.StorageManager on a directory.
type Manager struct {
	dir    string
	logger *common.Logger
	mu     sync.RWMutex
}

// NewManager creates the directory layout under dir.
func NewManager(logger *common.Logger, dir string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(dir, resultsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	logger.Debug().Str("dir", dir).Msg("file storage manager initialized")
	return &Manager{dir: dir, logger: logger}, nil
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return (*kvStorage)(m) }
func (m *Manager) ResultStorage() interfaces.ResultStorage     { return (*resultStorage)(m) }
func (m *Manager) StreakStorage() interfaces.StreakStorage     { return (*streakStorage)(m) }
func (m *Manager) Close() error                                { return nil }

// Slug is the readable part of a store's file name.
func Slug(store string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(store)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// writeJSON writes through a temp file and rename so readers never see a partial file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return interfaces.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// FileName maps a store name to its result file. The slug keeps it readable;
// the hash of the exact name keeps distinct stores apart ("Main St" vs "main-st").
func FileName(store string) string {
	slug := Slug(store)
	if slug == "" {
		slug = "store"
	}
	sum := sha256.Sum256([]byte(store))
	return slug + "-" + hex.EncodeToString(sum[:4]) + ".json"
}

type resultStorage Manager

func (s *resultStorage) path(store string) string {
	return filepath.Join(s.dir, resultsDir, FileName(store))
}

func (s *resultStorage) SaveResult(_ context.Context, r models.StoreResult) error {
	if strings.TrimSpace(r.Store) == "" {
		return fmt.Errorf("invalid store name %q", r.Store)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.path(r.Store), r); err != nil {
		return fmt.Errorf("failed to save result for %s: %w", r.Store, err)
	}
	return nil
}

func (s *resultStorage) GetResult(_ context.Context, store string) (models.StoreResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r models.StoreResult
	if err := readJSON(s.path(store), &r); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return models.StoreResult{}, fmt.Errorf("result for %s: %w", store, err)
		}
		return models.StoreResult{}, fmt.Errorf("failed to read result for %s: %w", store, err)
	}
	if r.Store != store {
		return models.StoreResult{}, fmt.Errorf("result for %s: file holds %q: %w", store, r.Store, interfaces.ErrNotFound)
	}
	return r, nil
}

func (s *resultStorage) ListResults(_ context.Context) ([]models.StoreResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := filepath.Glob(filepath.Join(s.dir, resultsDir, "*.json"))
	if err != nil {
		return nil, err
	}
	results := make([]models.StoreResult, 0, len(files))
	for _, f := range files {
		var r models.StoreResult
		if err := readJSON(f, &r); err != nil {
			s.logger.Warn().Str("file", f).Err(err).Msg("skipping unreadable result file")
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Store < results[j].Store })
	return results, nil
}

type streakStorage Manager

func (s *streakStorage) GetStreak(_ context.Context) (models.StreakState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var state models.StreakState
	if err := readJSON(filepath.Join(s.dir, streakFile), &state); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return models.StreakState{}, nil
		}
		return models.StreakState{}, fmt.Errorf("failed to read streak: %w", err)
	}
	return state, nil
}

// UpdateStreak holds streak.lock (created exclusively) for the read-modify-write,
// so a second process running the final report waits.
func (s *streakStorage) UpdateStreak(ctx context.Context, fn interfaces.StreakFunc) (models.StreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := acquireLock(ctx, filepath.Join(s.dir, lockFile), LockTimeout)
	if err != nil {
		return models.StreakState{}, err
	}
	defer release()

	var current models.StreakState
	if err := readJSON(filepath.Join(s.dir, streakFile), &current); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return models.StreakState{}, fmt.Errorf("failed to read streak: %w", err)
	}

	next, changed := fn(current)
	if !changed {
		return current, nil
	}
	if err := writeJSON(filepath.Join(s.dir, streakFile), next); err != nil {
		return models.StreakState{}, fmt.Errorf("failed to write streak: %w", err)
	}
	return next, nil
}

// acquireLock creates path exclusively. A lock file older than StaleLockAge is
// removed and the create retried.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > StaleLockAge {
			if rmErr := os.Remove(path); rmErr == nil || os.IsNotExist(rmErr) {
				continue
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock %s", path)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

type kvStorage Manager

func (s *kvStorage) load() (map[string]string, error) {
	entries := make(map[string]string)
	if err := readJSON(filepath.Join(s.dir, kvFile), &entries); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}
	return entries, nil
}

func (s *kvStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.load()
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	v, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, interfaces.ErrNotFound)
	}
	return v, nil
}

func (s *kvStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	entries[key] = value
	return writeJSON(filepath.Join(s.dir, kvFile), entries)
}

func (s *kvStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return writeJSON(filepath.Join(s.dir, kvFile), entries)
}

func (s *kvStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}
