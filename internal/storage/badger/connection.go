package badger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB owns the badgerhold store shared by the repositories.
type BadgerDB struct {
	store  *badgerhold.Store
	logger *common.Logger
	path   string
}

// NewBadgerDB opens the store described by cfg. Values are JSON encoded so
// amounts keep their fixed two-decimal form on disk.
func NewBadgerDB(logger *common.Logger, cfg *config.BadgerConfig) (*BadgerDB, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	path := cfg.Path
	if cfg.InMemory {
		path = ""
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if path == "" {
			return nil, fmt.Errorf("badger path is empty")
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		options.Dir = path
		options.ValueDir = path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %q: %w", path, err)
	}

	logger.Debug().Str("path", path).Bool("in_memory", cfg.InMemory).Msg("badger database opened")

	return &BadgerDB{store: store, logger: logger, path: path}, nil
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the store. It is safe to call more than once.
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	return err
}
