// Package sqlite stores results, streak and key-values in SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ResultModel is the store_results row. Amount keeps the fixed two-decimal text.
type ResultModel struct {
	Store       string `gorm:"primaryKey"`
	Amount      string `gorm:"not null"`
	CollectedAt time.Time
	Type        string
	Outcome     string
	Source      string
	Reason      string
	UpdatedAt   time.Time
}

func (ResultModel) TableName() string { return "store_results" }

// StreakModel is the single streak row (ID 1).
type StreakModel struct {
	ID              uint `gorm:"primaryKey"`
	CurrentTopStore string
	StreakDays      int
	LastUpdate      string
	UpdatedAt       time.Time
}

func (StreakModel) TableName() string { return "streak" }

// KVModel is a key_values row.
type KVModel struct {
	Key   string `gorm:"primaryKey;column:kv_key"`
	Value string
}

func (KVModel) TableName() string { return "key_values" }

const streakRowID = 1

// Store implements interfaces.StorageManager on SQLite.
type Store struct {
	db     *gorm.DB
	logger *common.Logger
}

// NewStore opens (and migrates) the database at path.
func NewStore(log *common.Logger, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewStoreFromDB(log, db)
}

// NewStoreFromDB wraps an existing gorm connection.
func NewStoreFromDB(log *common.Logger, db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&ResultModel{}, &StreakModel{}, &KVModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	log.Debug().Msg("sqlite storage initialized")
	return &Store{db: db, logger: log}, nil
}

func (s *Store) KeyValueStorage() interfaces.KeyValueStorage { return (*kvRepo)(s) }
func (s *Store) ResultStorage() interfaces.ResultStorage     { return (*resultRepo)(s) }
func (s *Store) StreakStorage() interfaces.StreakStorage     { return (*streakRepo)(s) }

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type resultRepo Store

func toModel(r models.StoreResult) ResultModel {
	return ResultModel{
		Store:       r.Store,
		Amount:      models.FormatAmount(models.RoundCents(r.Amount)),
		CollectedAt: r.CollectedAt,
		Type:        string(r.Type),
		Outcome:     string(r.Outcome),
		Source:      string(r.Source),
		Reason:      r.Reason,
	}
}

func fromModel(m ResultModel) (models.StoreResult, error) {
	amount, err := models.ParseAmount(m.Amount)
	if err != nil {
		return models.StoreResult{}, fmt.Errorf("store %s: %w", m.Store, err)
	}
	return models.StoreResult{
		Store:       m.Store,
		Amount:      amount,
		CollectedAt: m.CollectedAt,
		Type:        models.CollectionType(m.Type),
		Outcome:     models.Outcome(m.Outcome),
		Source:      models.Source(m.Source),
		Reason:      m.Reason,
	}, nil
}

func (r *resultRepo) SaveResult(ctx context.Context, res models.StoreResult) error {
	row := toModel(res)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", res.Store, err)
	}
	return nil
}

func (r *resultRepo) GetResult(ctx context.Context, store string) (models.StoreResult, error) {
	var row ResultModel
	err := r.db.WithContext(ctx).Where("store = ?", store).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StoreResult{}, fmt.Errorf("result for %s: %w", store, interfaces.ErrNotFound)
	}
	if err != nil {
		return models.StoreResult{}, fmt.Errorf("failed to get result for %s: %w", store, err)
	}
	return fromModel(row)
}

func (r *resultRepo) ListResults(ctx context.Context) ([]models.StoreResult, error) {
	var rows []ResultModel
	if err := r.db.WithContext(ctx).Order("store ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	out := make([]models.StoreResult, 0, len(rows))
	for _, row := range rows {
		res, err := fromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

type streakRepo Store

func (r *streakRepo) GetStreak(ctx context.Context) (models.StreakState, error) {
	return loadStreak(r.db.WithContext(ctx))
}

func loadStreak(db *gorm.DB) (models.StreakState, error) {
	var row StreakModel
	err := db.Where("id = ?", streakRowID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StreakState{}, nil
	}
	if err != nil {
		return models.StreakState{}, fmt.Errorf("failed to get streak: %w", err)
	}
	return models.StreakState{
		CurrentTopStore: row.CurrentTopStore,
		StreakDays:      row.StreakDays,
		LastUpdate:      row.LastUpdate,
	}, nil
}

// UpdateStreak runs fn inside a transaction; SQLite allows a single writer.
func (r *streakRepo) UpdateStreak(ctx context.Context, fn interfaces.StreakFunc) (models.StreakState, error) {
	var result models.StreakState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadStreak(tx)
		if err != nil {
			return err
		}
		next, changed := fn(current)
		if !changed {
			result = current
			return nil
		}
		row := StreakModel{
			ID:              streakRowID,
			CurrentTopStore: next.CurrentTopStore,
			StreakDays:      next.StreakDays,
			LastUpdate:      next.LastUpdate,
		}
		if err := tx.Save(&row).Error; err != nil {
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

type kvRepo Store

func (r *kvRepo) Get(ctx context.Context, key string) (string, error) {
	var row KVModel
	err := r.db.WithContext(ctx).Where("kv_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("key %s: %w", key, interfaces.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return row.Value, nil
}

func (r *kvRepo) Set(ctx context.Context, key, value string) error {
	row := KVModel{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("kv_key = ?", key).Delete(&KVModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (r *kvRepo) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []KVModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get all keys: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
