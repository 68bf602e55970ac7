package badger

import (
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db      *BadgerDB
	kv      interfaces.KeyValueStorage
	results interfaces.ResultStorage
	streak  interfaces.StreakStorage
	logger  *common.Logger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		kv:      NewKVStorage(db, logger),
		results: NewResultStorage(db, logger),
		streak:  NewStreakStorage(db, logger),
		logger:  logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// ResultStorage returns the per-store result storage.
func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.results
}

// StreakStorage returns the streak storage.
func (m *Manager) StreakStorage() interfaces.StreakStorage {
	return m.streak
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
