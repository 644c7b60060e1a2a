package store

import (
	"context"
	"fmt"

	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
)

// ClientStorages groups the engine-side repositories into a single value the
// service layer is wired with. All five share one SQLite database so the
// queue, the ledger, and the mirror survive process restarts together.
type ClientStorages struct {
	// Queue is the durable write-ahead queue of mutation requests.
	Queue QueueRepository

	// Ledger records the sync status of every entity mutation.
	Ledger LedgerRepository

	// Mirror is the local read-side copy of server entities.
	Mirror MirrorRepository

	// Checkpoint stores the pull cursor.
	Checkpoint CheckpointRepository

	// IDMap maps locally-generated placeholder ids to server ids.
	IDMap IDMapRepository

	db *DB
}

// NewClientStorages initialises the engine storage layer:
//  1. Opens an SQLite connection to the file at cfg.Path, creating the
//     database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.MigrateClient].
//  3. Constructs a [ClientStorages] wired to fresh repositories.
func NewClientStorages(cfg config.Local, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating engine storages...")

	db, err := NewConnectSQLite(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.MigrateClient(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		Queue:      NewQueueRepository(db, logger),
		Ledger:     NewLedgerRepository(db, logger),
		Mirror:     NewMirrorRepository(db, logger),
		Checkpoint: NewCheckpointRepository(db, logger),
		IDMap:      NewIDMapRepository(db, logger),
		db:         db,
	}, nil
}

// Close releases the underlying database connection.
func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
