package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

// Resolution names the three ways a conflicted entry can be settled.
type Resolution string

const (
	ResolutionAcceptClient Resolution = "accept_client"
	ResolutionAcceptServer Resolution = "accept_server"
	ResolutionManual       Resolution = "manual"
)

type conflictResolver struct {
	cfg          config.Engine
	queue        store.QueueRepository
	ledger       store.LedgerRepository
	mirror       store.MirrorRepository
	invalidation *Invalidation
	logger       *logger.Logger
}

func NewConflictResolver(
	cfg config.Engine,
	storages *store.ClientStorages,
	invalidation *Invalidation,
	logger *logger.Logger,
) ConflictResolver {
	return &conflictResolver{
		cfg:          cfg,
		queue:        storages.Queue,
		ledger:       storages.Ledger,
		mirror:       storages.Mirror,
		invalidation: invalidation,
		logger:       logger,
	}
}

// AcceptClient returns the conflicted entry to pending and re-enqueues the
// operation with Force set, under the same op_id. The server only consumes
// an op_id when it applies the operation, so the forced replay is not seen
// as a duplicate.
func (r *conflictResolver) AcceptClient(ctx context.Context, opID string) error {
	entry, err := r.conflictedEntry(ctx, opID)
	if err != nil {
		return err
	}

	if err = r.ledger.UpdateStatus(ctx, opID, models.StatusPending, nil); err != nil {
		return fmt.Errorf("reopen ledger entry %s: %w", opID, err)
	}

	_, err = r.queue.Enqueue(ctx, models.QueuedRequest{
		OpID:       entry.OpID,
		Entity:     entry.Entity,
		Action:     entry.Action,
		EntityID:   entry.EntityID,
		Payload:    entry.Payload,
		Force:      true,
		MaxRetries: r.cfg.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("re-enqueue forced request %s: %w", opID, err)
	}

	r.logger.Info().
		Str("func", "conflictResolver.AcceptClient").
		Str("op_id", opID).
		Str("entity", entry.Entity).
		Msg("conflict resolved in favour of local edit")

	return nil
}

// AcceptServer adopts the server's copy into the mirror and closes the entry.
// An empty server copy means the record no longer exists there, so the local
// mirror row is tombstoned.
func (r *conflictResolver) AcceptServer(ctx context.Context, opID string) error {
	entry, err := r.conflictedEntry(ctx, opID)
	if err != nil {
		return err
	}

	change := models.EntityChange{
		Entity:    entry.Entity,
		ID:        entry.EntityID,
		Action:    models.ActionUpdate,
		UpdatedAt: nowUTC(),
	}
	if entry.Conflict != nil && len(entry.Conflict.ServerData) > 0 {
		change.Data = entry.Conflict.ServerData
	} else {
		change.Action = models.ActionDelete
		change.Deleted = true
	}

	if err = r.mirror.Apply(ctx, change); err != nil {
		return fmt.Errorf("apply server copy for %s: %w", opID, err)
	}

	if err = r.ledger.UpdateStatus(ctx, opID, models.StatusSynced, nil); err != nil {
		return fmt.Errorf("close ledger entry %s: %w", opID, err)
	}

	if err = r.queue.Ack(ctx, opID); err != nil && !errors.Is(err, store.ErrRequestNotFound) {
		return fmt.Errorf("drop queued request %s: %w", opID, err)
	}

	r.invalidation.Notify(entry.Entity, entry.EntityID)

	r.logger.Info().
		Str("func", "conflictResolver.AcceptServer").
		Str("op_id", opID).
		Str("entity", entry.Entity).
		Msg("conflict resolved in favour of server copy")

	return nil
}

// Manual closes the entry as synced without pushing either side. It is the
// final step of a manual resolution: the operator has already corrected the
// record through the normal write path, so the stale intent is dropped from
// the queue and the entry leaves the conflict list.
func (r *conflictResolver) Manual(ctx context.Context, opID string) error {
	entry, err := r.conflictedEntry(ctx, opID)
	if err != nil {
		return err
	}

	if err = r.ledger.UpdateStatus(ctx, opID, models.StatusSynced, nil); err != nil {
		return fmt.Errorf("close ledger entry %s: %w", opID, err)
	}

	if err = r.queue.Ack(ctx, opID); err != nil && !errors.Is(err, store.ErrRequestNotFound) {
		return fmt.Errorf("drop queued request %s: %w", opID, err)
	}

	r.logger.Info().
		Str("func", "conflictResolver.Manual").
		Str("op_id", opID).
		Str("entity", entry.Entity).
		Msg("conflict closed after manual correction")

	return nil
}

func (r *conflictResolver) conflictedEntry(ctx context.Context, opID string) (models.SyncLogEntry, error) {
	entry, err := r.ledger.Get(ctx, opID)
	if err != nil {
		return models.SyncLogEntry{}, fmt.Errorf("load ledger entry %s: %w", opID, err)
	}
	if entry.Status != models.StatusConflict {
		return models.SyncLogEntry{}, fmt.Errorf("%w: %s has status %s", ErrNotInConflict, opID, entry.Status)
	}
	return entry, nil
}
