package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/models"
)

// localIDPrefix marks entity ids generated on a client before the server has
// assigned a real one. They must never leak into server-visible state.
const localIDPrefix = "local-"

type syncServerRepository struct {
	*DB
	logger *logger.Logger
}

func NewSyncServerRepository(db *DB, logger *logger.Logger) SyncServerRepository {
	return &syncServerRepository{
		DB:     db,
		logger: logger,
	}
}

type entityRow struct {
	Data      []byte
	Version   int64
	UpdatedAt time.Time
	Deleted   bool
	Finalized bool
}

func (r *syncServerRepository) ApplyOperation(ctx context.Context, clientID string, op models.SyncOperation) (OpOutcome, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return OpOutcome{}, fmt.Errorf("failed to begin transaction (op_id=%s): %w", op.OpID, err)
	}
	defer tx.Rollback()

	// The idempotency insert goes first: a replayed op_id violates the
	// primary key and the whole transaction is abandoned without touching
	// entity state.
	if _, err = tx.ExecContext(ctx, insertAppliedOp, op.OpID, clientID, op.Entity, op.EntityID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			log.Debug().
				Str("func", "syncServerRepository.ApplyOperation").
				Str("op_id", op.OpID).
				Msg("duplicate operation suppressed")
			return OpOutcome{Duplicate: true}, nil
		}
		return OpOutcome{}, fmt.Errorf("failed to record applied op (op_id=%s): %w", op.OpID, err)
	}

	entityID := op.EntityID
	var assignedServerID string
	if op.Action == models.ActionCreate && strings.HasPrefix(entityID, localIDPrefix) {
		assignedServerID = uuid.NewString()
		entityID = assignedServerID
	}

	current, found, err := r.lockEntity(ctx, tx, op.Entity, entityID)
	if err != nil {
		return OpOutcome{}, err
	}

	// Conflict and error verdicts roll back the applied_ops insert: only a
	// successfully applied operation consumes its op_id, so the client can
	// later re-send the same op_id with Force after resolving.
	if !op.Force {
		if conflict := classifyConflict(op, current, found); conflict != nil {
			conflict.ServerData = serverSnapshot(current, found)
			return OpOutcome{Conflict: conflict}, nil
		}
		if opErr := validateTarget(op, found); opErr != nil {
			return OpOutcome{Error: opErr}, nil
		}
	}

	switch op.Action {
	case models.ActionCreate, models.ActionUpdate:
		if _, err = tx.ExecContext(ctx, upsertEntity, op.Entity, entityID, []byte(op.Payload)); err != nil {
			return OpOutcome{}, fmt.Errorf("failed to upsert entity (op_id=%s): %w", op.OpID, err)
		}
		if _, err = tx.ExecContext(ctx, insertChangeLog, op.Entity, entityID, op.Action, []byte(op.Payload), false); err != nil {
			return OpOutcome{}, fmt.Errorf("failed to append change log (op_id=%s): %w", op.OpID, err)
		}
	case models.ActionDelete:
		if _, err = tx.ExecContext(ctx, softDeleteEntity, op.Entity, entityID); err != nil {
			return OpOutcome{}, fmt.Errorf("failed to delete entity (op_id=%s): %w", op.OpID, err)
		}
		if _, err = tx.ExecContext(ctx, insertChangeLog, op.Entity, entityID, op.Action, nil, true); err != nil {
			return OpOutcome{}, fmt.Errorf("failed to append change log (op_id=%s): %w", op.OpID, err)
		}
	default:
		return OpOutcome{Error: &models.ErrorResponse{
			OpID:  op.OpID,
			Error: fmt.Sprintf("unknown action %q", op.Action),
			Code:  "invalid_action",
		}}, nil
	}

	if err = tx.Commit(); err != nil {
		return OpOutcome{}, fmt.Errorf("failed to commit operation (op_id=%s): %w", op.OpID, err)
	}

	return OpOutcome{Applied: true, ServerID: assignedServerID}, nil
}

func (r *syncServerRepository) lockEntity(ctx context.Context, tx *sql.Tx, entity, entityID string) (entityRow, bool, error) {
	var row entityRow

	err := tx.QueryRowContext(ctx, selectEntityForUpdate, entity, entityID).
		Scan(&row.Data, &row.Version, &row.UpdatedAt, &row.Deleted, &row.Finalized)
	if errors.Is(err, sql.ErrNoRows) {
		return entityRow{}, false, nil
	}
	if err != nil {
		return entityRow{}, false, fmt.Errorf("failed to lock entity row (%s/%s): %w", entity, entityID, err)
	}

	return row, true, nil
}

// classifyConflict decides whether the operation diverges from the current
// server row. Order matters: business-state incompatibilities outrank
// optimistic-lock mismatches, which outrank stale-timestamp detection.
func classifyConflict(op models.SyncOperation, current entityRow, found bool) *models.ConflictResponse {
	if !found {
		return nil
	}

	base := func(ct models.ConflictType, msg string) *models.ConflictResponse {
		return &models.ConflictResponse{
			OpID:         op.OpID,
			Entity:       op.Entity,
			Action:       op.Action,
			ConflictType: ct,
			ClientData:   json.RawMessage(op.Payload),
			Message:      msg,
		}
	}

	if current.Finalized {
		return base(models.ConflictState, "record is finalized and can no longer be modified")
	}
	if current.Deleted && op.Action != models.ActionCreate {
		return base(models.ConflictState, "record was deleted on the server")
	}
	if op.Action == models.ActionCreate && !current.Deleted {
		return base(models.ConflictState, "record already exists on the server")
	}

	if clientVersion, ok := payloadVersion(op.Payload); ok && clientVersion != current.Version {
		return base(models.ConflictVersion,
			fmt.Sprintf("version mismatch: client has %d, server has %d", clientVersion, current.Version))
	}

	if op.Action != models.ActionCreate && current.UpdatedAt.After(op.ClientUpdatedAt) {
		return base(models.ConflictTimestamp, "record changed on the server after the client's edit")
	}

	return nil
}

func validateTarget(op models.SyncOperation, found bool) *models.ErrorResponse {
	if op.Action != models.ActionCreate && !found {
		return &models.ErrorResponse{
			OpID:  op.OpID,
			Error: fmt.Sprintf("%s %s not found", op.Entity, op.EntityID),
			Code:  "not_found",
		}
	}
	return nil
}

func serverSnapshot(current entityRow, found bool) any {
	if !found || current.Data == nil {
		return nil
	}
	return json.RawMessage(current.Data)
}

// payloadVersion extracts the optional optimistic-lock version carried inside
// an opaque payload. Payloads without one fall back to timestamp comparison.
func payloadVersion(payload json.RawMessage) (int64, bool) {
	if len(payload) == 0 {
		return 0, false
	}

	var probe struct {
		Version *int64 `json:"version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.Version == nil {
		return 0, false
	}

	return *probe.Version, true
}

func (r *syncServerRepository) ChangesSince(ctx context.Context, cursor string, limit int) ([]models.EntityChange, string, bool, error) {
	log := logger.FromContext(ctx)

	since := int64(0)
	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: %q", ErrBadCursor, cursor)
		}
		since = parsed
	}

	// limit+1 probes for a further page without a second round trip.
	query, args, err := sq.Select("seq", "entity", "entity_id", "action", "data", "updated_at", "deleted").
		From("change_log").
		Where(sq.Gt{"seq": since}).
		OrderBy("seq ASC").
		Limit(uint64(limit + 1)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to build change log query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncServerRepository.ChangesSince").
			Str("cursor", cursor).
			Msg("failed to query change log")
		return nil, "", false, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	var changes []models.EntityChange
	var seqs []int64
	for rows.Next() {
		var change models.EntityChange
		var seq int64
		var data []byte

		if scanErr := rows.Scan(&seq, &change.Entity, &change.ID, &change.Action, &data, &change.UpdatedAt, &change.Deleted); scanErr != nil {
			return nil, "", false, fmt.Errorf("failed to scan change log row: %w", scanErr)
		}

		change.Data = data
		changes = append(changes, change)
		seqs = append(seqs, seq)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, "", false, fmt.Errorf("error iterating change log rows: %w", rowsErr)
	}

	hasMore := len(changes) > limit
	if hasMore {
		changes = changes[:limit]
	}

	// The new cursor points at the last row actually handed back, so the
	// probe row is re-served on the next page.
	lastSeq := since
	if len(changes) > 0 {
		lastSeq = seqs[len(changes)-1]
	}

	return changes, strconv.FormatInt(lastSeq, 10), hasMore, nil
}
