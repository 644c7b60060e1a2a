package store

import (
	"context"
	"fmt"

	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
)

// Storages groups the server-side repositories.
type Storages struct {
	Sync SyncServerRepository

	db *DB
}

// NewStorages initialises the server storage layer:
//  1. Connects to PostgreSQL using the passed DB configs.
//  2. Runs pending schema migrations via [DB.MigrateServer].
//  3. Constructs a [Storages] wired to a fresh sync repository.
func NewStorages(cfg config.DB, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating server storages...")

	db, err := NewConnectPostgres(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	if err := db.MigrateServer(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Sync: NewSyncServerRepository(db, logger),
		db:   db,
	}, nil
}

// Close releases the underlying database connection.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
