package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tillware/syncengine/internal/logger"
)

type checkpointRepository struct {
	*DB
	logger *logger.Logger
}

func NewCheckpointRepository(db *DB, logger *logger.Logger) CheckpointRepository {
	return &checkpointRepository{
		DB:     db,
		logger: logger,
	}
}

func (c *checkpointRepository) Get(ctx context.Context) (string, error) {
	var cursor string

	row := c.DB.QueryRowContext(ctx, selectCheckpoint)
	err := row.Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		// migration seeds the row; an empty cursor means "from the beginning"
		return "", nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "checkpointRepository.Get").
			Msg("failed to read sync checkpoint")
		return "", fmt.Errorf("failed to read sync checkpoint: %w", err)
	}

	return cursor, nil
}

func (c *checkpointRepository) Set(ctx context.Context, cursor string) error {
	log := logger.FromContext(ctx)

	_, err := c.DB.ExecContext(ctx, updateCheckpoint, cursor, time.Now().UTC())
	if err != nil {
		log.Err(err).
			Str("func", "checkpointRepository.Set").
			Str("cursor", cursor).
			Msg("failed to advance sync checkpoint")
		return fmt.Errorf("failed to advance sync checkpoint: %w", err)
	}

	return nil
}

type idMapRepository struct {
	*DB
	logger *logger.Logger
}

func NewIDMapRepository(db *DB, logger *logger.Logger) IDMapRepository {
	return &idMapRepository{
		DB:     db,
		logger: logger,
	}
}

func (i *idMapRepository) Put(ctx context.Context, entity, localID, serverID string) error {
	log := logger.FromContext(ctx)

	_, err := i.DB.ExecContext(ctx, putIDMapping, entity, localID, serverID)
	if err != nil {
		log.Err(err).
			Str("func", "idMapRepository.Put").
			Str("entity", entity).
			Str("local_id", localID).
			Str("server_id", serverID).
			Msg("failed to store id mapping")
		return fmt.Errorf("failed to store id mapping (%s/%s): %w", entity, localID, err)
	}

	return nil
}

func (i *idMapRepository) Resolve(ctx context.Context, entity, id string) (string, bool, error) {
	var serverID string

	row := i.DB.QueryRowContext(ctx, resolveIDMapping, entity, id)
	err := row.Scan(&serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return id, false, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "idMapRepository.Resolve").
			Str("entity", entity).
			Str("id", id).
			Msg("failed to resolve id mapping")
		return "", false, fmt.Errorf("failed to resolve id mapping (%s/%s): %w", entity, id, err)
	}

	return serverID, true, nil
}
