package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/models"
)

type ledgerRepository struct {
	*DB
	logger *logger.Logger
}

func NewLedgerRepository(db *DB, logger *logger.Logger) LedgerRepository {
	return &ledgerRepository{
		DB:     db,
		logger: logger,
	}
}

// Record enforces the single in-flight entry invariant: a second local edit
// to an entity whose previous edit is still pending or in conflict replaces
// the existing entry's intent in place (last writer wins locally) instead of
// appending a second row. The surviving entry keeps its original op_id so a
// retried replay stays deduplicatable on the server.
func (l *ledgerRepository) Record(ctx context.Context, entry models.SyncLogEntry) (models.SyncLogEntry, bool, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	if entry.ClientUpdatedAt.IsZero() {
		entry.ClientUpdatedAt = now
	}

	existing, found, err := l.GetInFlight(ctx, entry.Entity, entry.EntityID)
	if err != nil {
		return models.SyncLogEntry{}, false, err
	}

	if found {
		_, err = l.DB.ExecContext(ctx, replaceInFlightEntry,
			entry.Action,
			[]byte(entry.Payload),
			entry.ClientUpdatedAt,
			now,
			existing.OpID,
		)
		if err != nil {
			log.Err(err).
				Str("func", "ledgerRepository.Record").
				Str("entity", entry.Entity).
				Str("entity_id", entry.EntityID).
				Msg("failed to replace in-flight ledger entry")
			return models.SyncLogEntry{}, false, fmt.Errorf("failed to replace in-flight ledger entry (op_id=%s): %w", existing.OpID, err)
		}

		existing.Action = entry.Action
		existing.Payload = entry.Payload
		existing.ClientUpdatedAt = entry.ClientUpdatedAt
		existing.Status = models.StatusPending
		existing.Conflict = nil
		existing.UpdatedAt = now
		return existing, true, nil
	}

	entry.Status = models.StatusPending
	entry.CreatedAt = now
	entry.UpdatedAt = now

	result, err := l.DB.ExecContext(ctx, insertLedgerEntry,
		entry.OpID,
		entry.Entity,
		entry.Action,
		entry.EntityID,
		[]byte(entry.Payload),
		entry.ClientID,
		entry.ClientUpdatedAt,
		entry.Status,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "ledgerRepository.Record").
			Str("entity", entry.Entity).
			Str("entity_id", entry.EntityID).
			Msg("failed to insert ledger entry")
		return models.SyncLogEntry{}, false, fmt.Errorf("failed to insert ledger entry (op_id=%s): %w", entry.OpID, err)
	}

	if entry.ID, err = result.LastInsertId(); err != nil {
		return models.SyncLogEntry{}, false, fmt.Errorf("failed to read assigned ledger id (op_id=%s): %w", entry.OpID, err)
	}

	return entry, false, nil
}

func (l *ledgerRepository) UpdateStatus(ctx context.Context, opID string, status models.SyncStatus, conflict *models.ConflictData) error {
	log := logger.FromContext(ctx)

	var conflictType, message sql.NullString
	var serverData []byte
	if conflict != nil {
		conflictType = sql.NullString{String: string(conflict.ConflictType), Valid: true}
		message = sql.NullString{String: conflict.Message, Valid: conflict.Message != ""}
		serverData = conflict.ServerData
	}

	result, err := l.DB.ExecContext(ctx, updateLedgerStatus,
		status,
		conflictType,
		serverData,
		message,
		time.Now().UTC(),
		opID,
	)
	if err != nil {
		log.Err(err).
			Str("func", "ledgerRepository.UpdateStatus").
			Str("op_id", opID).
			Str("status", string(status)).
			Msg("failed to update ledger entry status")
		return fmt.Errorf("failed to update ledger status (op_id=%s): %w", opID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (op_id=%s): %w", opID, err)
	}
	if affected == 0 {
		log.Warn().
			Str("func", "ledgerRepository.UpdateStatus").
			Str("op_id", opID).
			Msg("no rows affected: ledger entry not found")
		return fmt.Errorf("%w (op_id=%s)", ErrLedgerEntryNotFound, opID)
	}

	return nil
}

func (l *ledgerRepository) Get(ctx context.Context, opID string) (models.SyncLogEntry, error) {
	row := l.DB.QueryRowContext(ctx, selectLedgerEntry, opID)

	entry, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncLogEntry{}, fmt.Errorf("%w (op_id=%s)", ErrLedgerEntryNotFound, opID)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "ledgerRepository.Get").
			Str("op_id", opID).
			Msg("failed to scan ledger entry")
		return models.SyncLogEntry{}, fmt.Errorf("failed to get ledger entry (op_id=%s): %w", opID, err)
	}

	return entry, nil
}

func (l *ledgerRepository) GetInFlight(ctx context.Context, entity, entityID string) (models.SyncLogEntry, bool, error) {
	row := l.DB.QueryRowContext(ctx, selectInFlightEntry, entity, entityID)

	entry, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncLogEntry{}, false, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "ledgerRepository.GetInFlight").
			Str("entity", entity).
			Str("entity_id", entityID).
			Msg("failed to scan in-flight ledger entry")
		return models.SyncLogEntry{}, false, fmt.Errorf("failed to get in-flight ledger entry (%s/%s): %w", entity, entityID, err)
	}

	return entry, true, nil
}

func (l *ledgerRepository) ListByStatus(ctx context.Context, status models.SyncStatus) ([]models.SyncLogEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := l.DB.QueryContext(ctx, listLedgerByStatus, status)
	if err != nil {
		log.Err(err).
			Str("func", "ledgerRepository.ListByStatus").
			Str("status", string(status)).
			Msg("failed to query ledger entries by status")
		return nil, fmt.Errorf("failed to query ledger entries by status %s: %w", status, err)
	}
	defer rows.Close()

	var items []models.SyncLogEntry
	for rows.Next() {
		entry, scanErr := scanLedgerEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", scanErr)
		}
		items = append(items, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", rowsErr)
	}

	return items, nil
}

func (l *ledgerRepository) Counts(ctx context.Context) (models.StatusCounts, error) {
	log := logger.FromContext(ctx)

	rows, err := l.DB.QueryContext(ctx, countLedgerByStatus)
	if err != nil {
		log.Err(err).
			Str("func", "ledgerRepository.Counts").
			Msg("failed to count ledger entries")
		return models.StatusCounts{}, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	defer rows.Close()

	var counts models.StatusCounts
	for rows.Next() {
		var status models.SyncStatus
		var n int
		if scanErr := rows.Scan(&status, &n); scanErr != nil {
			return models.StatusCounts{}, fmt.Errorf("failed to scan ledger count row: %w", scanErr)
		}

		switch status {
		case models.StatusPending:
			counts.Pending = n
		case models.StatusConflict:
			counts.Conflict = n
		case models.StatusFailed:
			counts.Failed = n
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return models.StatusCounts{}, fmt.Errorf("error iterating ledger count rows: %w", rowsErr)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (models.SyncLogEntry, error) {
	var entry models.SyncLogEntry
	var payload, serverData []byte
	var conflictType, message sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.OpID,
		&entry.Entity,
		&entry.Action,
		&entry.EntityID,
		&payload,
		&entry.ClientID,
		&entry.ClientUpdatedAt,
		&entry.Status,
		&conflictType,
		&serverData,
		&message,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return models.SyncLogEntry{}, err
	}

	entry.Payload = payload
	if conflictType.Valid {
		entry.Conflict = &models.ConflictData{
			ConflictType: models.ConflictType(conflictType.String),
			ServerData:   serverData,
			Message:      message.String,
		}
	}

	return entry, nil
}
