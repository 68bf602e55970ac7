package storage

import (
	"fmt"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/storage/badger"
	"github.com/bobmcallan/storetally/internal/storage/file"
	"github.com/bobmcallan/storetally/internal/storage/memory"
	"github.com/bobmcallan/storetally/internal/storage/sqlite"
)

// NewStorageManager creates the storage backend named by cfg.Storage.Backend.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "file":
		return file.NewManager(logger, cfg.Storage.File.Dir)
	case "sqlite":
		return sqlite.NewStore(logger, cfg.Storage.SQLite.Path)
	case "memory":
		return memory.NewManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
