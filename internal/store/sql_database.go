package store

import (
	"database/sql"

	"github.com/tillware/syncengine/internal/logger"
	clientmigrations "github.com/tillware/syncengine/migrations/client"
	servermigrations "github.com/tillware/syncengine/migrations/server"
)

type DB struct {
	*sql.DB
	logger *logger.Logger
}

// MigrateClient applies the engine's local SQLite schema.
func (db *DB) MigrateClient() error {
	return clientmigrations.Migrate(db.DB)
}

// MigrateServer applies the reference server's PostgreSQL schema.
func (db *DB) MigrateServer() error {
	return servermigrations.Migrate(db.DB)
}
