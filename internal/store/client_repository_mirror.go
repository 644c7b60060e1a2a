package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/models"
)

type mirrorRepository struct {
	*DB
	logger *logger.Logger
}

func NewMirrorRepository(db *DB, logger *logger.Logger) MirrorRepository {
	return &mirrorRepository{
		DB:     db,
		logger: logger,
	}
}

// Apply is a full replace by id, which keeps pull-side merges idempotent: a
// re-pulled batch lands on the same rows with the same values.
func (m *mirrorRepository) Apply(ctx context.Context, change models.EntityChange) error {
	log := logger.FromContext(ctx)

	_, err := m.DB.ExecContext(ctx, applyMirrorEntry,
		change.Entity,
		change.ID,
		[]byte(change.Data),
		change.UpdatedAt,
		change.Deleted,
	)
	if err != nil {
		log.Err(err).
			Str("func", "mirrorRepository.Apply").
			Str("entity", change.Entity).
			Str("entity_id", change.ID).
			Msg("failed to upsert mirror entry")
		return fmt.Errorf("failed to apply mirror change (%s/%s): %w", change.Entity, change.ID, err)
	}

	return nil
}

func (m *mirrorRepository) Get(ctx context.Context, entity, entityID string) (models.MirrorEntry, error) {
	var entry models.MirrorEntry
	var data []byte

	row := m.DB.QueryRowContext(ctx, selectMirrorEntry, entity, entityID)
	err := row.Scan(&entry.Entity, &entry.EntityID, &data, &entry.UpdatedAt, &entry.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MirrorEntry{}, fmt.Errorf("%w (%s/%s)", ErrMirrorEntryNotFound, entity, entityID)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "mirrorRepository.Get").
			Str("entity", entity).
			Str("entity_id", entityID).
			Msg("failed to scan mirror entry")
		return models.MirrorEntry{}, fmt.Errorf("failed to get mirror entry (%s/%s): %w", entity, entityID, err)
	}

	entry.Data = data
	return entry, nil
}

func (m *mirrorRepository) Rekey(ctx context.Context, entity, localID, serverID string) error {
	log := logger.FromContext(ctx)

	_, err := m.DB.ExecContext(ctx, rekeyMirrorEntry, serverID, entity, localID)
	if err != nil {
		log.Err(err).
			Str("func", "mirrorRepository.Rekey").
			Str("entity", entity).
			Str("local_id", localID).
			Str("server_id", serverID).
			Msg("failed to rekey mirror entry")
		return fmt.Errorf("failed to rekey mirror entry (%s/%s): %w", entity, localID, err)
	}

	return nil
}
