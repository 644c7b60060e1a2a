package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

func (q *queueRepository) Enqueue(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	result, err := q.DB.ExecContext(ctx, enqueueRequest,
		req.OpID,
		req.Entity,
		req.Action,
		req.EntityID,
		[]byte(req.Payload),
		req.Force,
		req.MaxRetries,
		req.CreatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("op_id", req.OpID).
			Str("entity", req.Entity).
			Msg("failed to insert queued request")
		return models.QueuedRequest{}, fmt.Errorf("failed to enqueue request (op_id=%s): %w", req.OpID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("op_id", req.OpID).
			Msg("failed to read assigned queue id")
		return models.QueuedRequest{}, fmt.Errorf("failed to read assigned queue id (op_id=%s): %w", req.OpID, err)
	}

	req.ID = id
	return req, nil
}

func (q *queueRepository) DequeueBatch(ctx context.Context, n int) ([]models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	rows, err := q.DB.QueryContext(ctx, dequeueBatch, n)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.DequeueBatch").
			Int("batch", n).
			Msg("failed to query replayable requests")
		return nil, fmt.Errorf("failed to query replayable requests: %w", err)
	}
	defer rows.Close()

	return scanQueuedRequests(rows)
}

func (q *queueRepository) GetAll(ctx context.Context) ([]models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	rows, err := q.DB.QueryContext(ctx, getAllRequests)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.GetAll").
			Msg("failed to query all queued requests")
		return nil, fmt.Errorf("failed to query all queued requests: %w", err)
	}
	defer rows.Close()

	return scanQueuedRequests(rows)
}

func (q *queueRepository) Ack(ctx context.Context, opID string) error {
	return q.execOnRequest(ctx, "queueRepository.Ack", ackRequest, opID)
}

func (q *queueRepository) BumpRetry(ctx context.Context, opID string) error {
	return q.execOnRequest(ctx, "queueRepository.BumpRetry", bumpRetry, opID)
}

func (q *queueRepository) MarkFailed(ctx context.Context, opID string) error {
	return q.execOnRequest(ctx, "queueRepository.MarkFailed", markRequestFailed, opID)
}

func (q *queueRepository) UpdatePayload(ctx context.Context, opID string, action models.SyncAction, payload []byte) error {
	log := logger.FromContext(ctx)

	result, err := q.DB.ExecContext(ctx, updateRequestPayload, action, payload, opID)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.UpdatePayload").
			Str("op_id", opID).
			Msg("failed to rewrite queued request payload")
		return fmt.Errorf("failed to rewrite queued request payload (op_id=%s): %w", opID, err)
	}

	return q.checkAffected(ctx, "queueRepository.UpdatePayload", opID, result)
}

func (q *queueRepository) Size(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	var size int
	row := q.DB.QueryRowContext(ctx, queueSize)
	if err := row.Scan(&size); err != nil {
		log.Err(err).
			Str("func", "queueRepository.Size").
			Msg("failed to count replayable requests")
		return 0, fmt.Errorf("failed to count replayable requests: %w", err)
	}

	return size, nil
}

func (q *queueRepository) execOnRequest(ctx context.Context, fn, query, opID string) error {
	log := logger.FromContext(ctx)

	result, err := q.DB.ExecContext(ctx, query, opID)
	if err != nil {
		log.Err(err).
			Str("func", fn).
			Str("op_id", opID).
			Msg("failed to execute queue statement")
		return fmt.Errorf("failed to execute queue statement (op_id=%s): %w", opID, err)
	}

	return q.checkAffected(ctx, fn, opID, result)
}

func (q *queueRepository) checkAffected(ctx context.Context, fn, opID string, result sql.Result) error {
	log := logger.FromContext(ctx)

	affected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).
			Str("func", fn).
			Str("op_id", opID).
			Msg("failed to get rows affected")
		return fmt.Errorf("failed to get rows affected (op_id=%s): %w", opID, err)
	}
	if affected == 0 {
		log.Warn().
			Str("func", fn).
			Str("op_id", opID).
			Msg("no rows affected: queued request not found")
		return fmt.Errorf("%w (op_id=%s)", ErrRequestNotFound, opID)
	}

	return nil
}

func scanQueuedRequests(rows *sql.Rows) ([]models.QueuedRequest, error) {
	var items []models.QueuedRequest

	for rows.Next() {
		var item models.QueuedRequest
		var payload []byte

		scanErr := rows.Scan(
			&item.ID,
			&item.OpID,
			&item.Entity,
			&item.Action,
			&item.EntityID,
			&payload,
			&item.Force,
			&item.RetryCount,
			&item.MaxRetries,
			&item.Failed,
			&item.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan queued request row: %w", scanErr)
		}

		item.Payload = payload
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating queued request rows: %w", rowsErr)
	}

	return items, nil
}
