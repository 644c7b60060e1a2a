package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

type pushReconciler struct {
	cfg          config.Engine
	queue        store.QueueRepository
	ledger       store.LedgerRepository
	mirror       store.MirrorRepository
	idMap        store.IDMapRepository
	transport    adapter.SyncTransport
	invalidation *Invalidation
	logger       *logger.Logger
}

func NewPushReconciler(
	cfg config.Engine,
	storages *store.ClientStorages,
	transport adapter.SyncTransport,
	invalidation *Invalidation,
	logger *logger.Logger,
) PushReconciler {
	return &pushReconciler{
		cfg:          cfg,
		queue:        storages.Queue,
		ledger:       storages.Ledger,
		mirror:       storages.Mirror,
		idMap:        storages.IDMap,
		transport:    transport,
		invalidation: invalidation,
		logger:       logger,
	}
}

// Drain replays queued requests oldest-first in batches of PushBatchSize.
// A batch-level transport failure stops the drain and leaves the batch in the
// queue; the at-least-once guarantee comes from acking only after the server
// confirmed each operation.
func (p *pushReconciler) Drain(ctx context.Context) error {
	log := logger.FromContext(ctx)

	for {
		batch, err := p.queue.DequeueBatch(ctx, p.cfg.PushBatchSize)
		if err != nil {
			return fmt.Errorf("dequeue batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		ops, err := p.buildOperations(ctx, batch)
		if err != nil {
			return err
		}

		resp, err := p.transport.Push(ctx, models.PushRequest{ClientID: p.cfg.ClientID, Operations: ops})
		if err != nil {
			if errors.Is(err, adapter.ErrUnreachable) {
				return fmt.Errorf("%w: %w", ErrOffline, err)
			}
			return fmt.Errorf("push batch: %w", err)
		}

		log.Debug().
			Str("func", "pushReconciler.Drain").
			Int("batch", len(batch)).
			Int("processed", resp.Processed).
			Int("conflicts", len(resp.Conflicts)).
			Int("errors", len(resp.Errors)).
			Msg("push batch settled")

		retried, err := p.settleBatch(ctx, batch, ops, resp)
		if err != nil {
			return err
		}

		// requests held back for retry wait for the next drain; re-pushing
		// them in the same pass would burn the retry budget with no backoff
		if retried || len(batch) < p.cfg.PushBatchSize {
			return nil
		}
	}
}

// buildOperations converts queued requests to wire form, rewriting entity ids
// through the id map so operations recorded against a placeholder id reach
// the server under the id it actually assigned.
func (p *pushReconciler) buildOperations(ctx context.Context, batch []models.QueuedRequest) ([]models.SyncOperation, error) {
	ops := make([]models.SyncOperation, 0, len(batch))
	for _, req := range batch {
		entityID, _, err := p.idMap.Resolve(ctx, req.Entity, req.EntityID)
		if err != nil {
			return nil, fmt.Errorf("resolve id for %s/%s: %w", req.Entity, req.EntityID, err)
		}

		clientUpdatedAt := req.CreatedAt
		if entry, lerr := p.ledger.Get(ctx, req.OpID); lerr == nil {
			clientUpdatedAt = entry.ClientUpdatedAt
		}

		op := req.Operation(p.cfg.ClientID, clientUpdatedAt)
		op.EntityID = entityID
		ops = append(ops, op)
	}
	return ops, nil
}

// settleBatch applies the per-operation verdicts. It reports whether any
// request was left in the queue for another attempt.
func (p *pushReconciler) settleBatch(ctx context.Context, batch []models.QueuedRequest, ops []models.SyncOperation, resp models.PushResponse) (bool, error) {
	conflicts := make(map[string]models.ConflictResponse, len(resp.Conflicts))
	for _, c := range resp.Conflicts {
		conflicts[c.OpID] = c
	}
	opErrors := make(map[string]models.ErrorResponse, len(resp.Errors))
	for _, e := range resp.Errors {
		opErrors[e.OpID] = e
	}

	retried := false
	for i, req := range batch {
		switch {
		case hasKey(conflicts, req.OpID):
			if err := p.settleConflict(ctx, req, conflicts[req.OpID]); err != nil {
				return false, err
			}
		case hasKey(opErrors, req.OpID):
			bumped, err := p.settleError(ctx, req, opErrors[req.OpID])
			if err != nil {
				return false, err
			}
			retried = retried || bumped
		default:
			if err := p.settleApplied(ctx, req, ops[i], resp); err != nil {
				return false, err
			}
		}
	}

	return retried, nil
}

// settleApplied finishes a confirmed operation: records the server-assigned
// id for creates, removes the request, and closes the ledger entry.
func (p *pushReconciler) settleApplied(ctx context.Context, req models.QueuedRequest, op models.SyncOperation, resp models.PushResponse) error {
	finalID := op.EntityID
	if serverID, ok := resp.CreatedServerIDs[req.OpID]; ok && serverID != op.EntityID {
		if err := p.idMap.Put(ctx, req.Entity, op.EntityID, serverID); err != nil {
			return fmt.Errorf("record id mapping %s->%s: %w", op.EntityID, serverID, err)
		}
		if err := p.mirror.Rekey(ctx, req.Entity, op.EntityID, serverID); err != nil && !errors.Is(err, store.ErrMirrorEntryNotFound) {
			return fmt.Errorf("rekey mirror %s->%s: %w", op.EntityID, serverID, err)
		}
		finalID = serverID
	}

	// a second local edit may have rewritten this request's payload while
	// the pushed copy was on the wire; acking now would drop that edit, so
	// the row stays queued and replays under the same op_id
	if entry, lerr := p.ledger.Get(ctx, req.OpID); lerr == nil && entry.ClientUpdatedAt.After(op.ClientUpdatedAt) {
		p.logger.Debug().
			Str("func", "pushReconciler.settleApplied").
			Str("op_id", req.OpID).
			Msg("payload rewritten in flight, request left queued")
		p.invalidation.Notify(req.Entity, finalID)
		return nil
	}

	if err := p.queue.Ack(ctx, req.OpID); err != nil {
		return fmt.Errorf("ack request %s: %w", req.OpID, err)
	}
	if err := p.ledger.UpdateStatus(ctx, req.OpID, models.StatusSynced, nil); err != nil && !errors.Is(err, store.ErrLedgerEntryNotFound) {
		return fmt.Errorf("close ledger entry %s: %w", req.OpID, err)
	}

	p.invalidation.Notify(req.Entity, finalID)
	return nil
}

// settleConflict removes the request from the replay queue: a conflict never
// retries on its own, it waits for an explicit resolution.
func (p *pushReconciler) settleConflict(ctx context.Context, req models.QueuedRequest, conflict models.ConflictResponse) error {
	if err := p.queue.Ack(ctx, req.OpID); err != nil {
		return fmt.Errorf("ack conflicted request %s: %w", req.OpID, err)
	}

	data := &models.ConflictData{
		ConflictType: conflict.ConflictType,
		Message:      conflict.Message,
	}
	if conflict.ServerData != nil {
		raw, err := json.Marshal(conflict.ServerData)
		if err != nil {
			return fmt.Errorf("encode server data for %s: %w", req.OpID, err)
		}
		data.ServerData = raw
	}

	if err := p.ledger.UpdateStatus(ctx, req.OpID, models.StatusConflict, data); err != nil {
		return fmt.Errorf("mark ledger conflict %s: %w", req.OpID, err)
	}

	p.logger.Warn().
		Str("func", "pushReconciler.settleConflict").
		Str("op_id", req.OpID).
		Str("entity", req.Entity).
		Str("conflict_type", string(conflict.ConflictType)).
		Msg("operation conflicted")

	return nil
}

// settleError retries rejected operations until the retry cap, except for
// verdicts that cannot change on replay. It reports whether the request was
// held back for a later drain.
func (p *pushReconciler) settleError(ctx context.Context, req models.QueuedRequest, opErr models.ErrorResponse) (bool, error) {
	permanent := opErr.Code == "not_found" || opErr.Code == "invalid_action" || opErr.Code == "validation"
	exhausted := req.RetryCount+1 >= req.MaxRetries

	if !permanent && !exhausted {
		if err := p.queue.BumpRetry(ctx, req.OpID); err != nil {
			return false, fmt.Errorf("bump retry %s: %w", req.OpID, err)
		}
		return true, nil
	}

	if err := p.queue.MarkFailed(ctx, req.OpID); err != nil {
		return false, fmt.Errorf("mark request failed %s: %w", req.OpID, err)
	}
	if err := p.ledger.UpdateStatus(ctx, req.OpID, models.StatusFailed, nil); err != nil && !errors.Is(err, store.ErrLedgerEntryNotFound) {
		return false, fmt.Errorf("mark ledger failed %s: %w", req.OpID, err)
	}

	p.logger.Warn().
		Str("func", "pushReconciler.settleError").
		Str("op_id", req.OpID).
		Str("code", opErr.Code).
		Int("retries", req.RetryCount).
		Msg("operation failed permanently")

	return false, nil
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

// nowUTC is a seam for tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
