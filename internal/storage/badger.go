// Package storage is the DAO boundary: every persisted entity goes through
// the typed stores here, backed by an embedded badgerhold database plus a
// content-addressed blob directory for document bytes.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/common"
)

// BadgerDB manages the embedded database connection.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewBadgerDB opens (and optionally resets) the database at the configured
// path.
func NewBadgerDB(cfg common.StorageConfig, logger arbor.ILogger) (*BadgerDB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.BadgerPath); err == nil {
			logger.Debug().Str("path", cfg.BadgerPath).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.BadgerPath); err != nil {
				logger.Warn().Err(err).Str("path", cfg.BadgerPath).Msg("failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.BadgerPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.BadgerPath
	options.ValueDir = cfg.BadgerPath
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", cfg.BadgerPath).Msg("badger database initialized")
	return &BadgerDB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection.
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
