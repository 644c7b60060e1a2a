package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

type pullReconciler struct {
	cfg          config.Engine
	ledger       store.LedgerRepository
	mirror       store.MirrorRepository
	checkpoint   store.CheckpointRepository
	transport    adapter.SyncTransport
	invalidation *Invalidation
	logger       *logger.Logger
}

func NewPullReconciler(
	cfg config.Engine,
	storages *store.ClientStorages,
	transport adapter.SyncTransport,
	invalidation *Invalidation,
	logger *logger.Logger,
) PullReconciler {
	return &pullReconciler{
		cfg:          cfg,
		ledger:       storages.Ledger,
		mirror:       storages.Mirror,
		checkpoint:   storages.Checkpoint,
		transport:    transport,
		invalidation: invalidation,
		logger:       logger,
	}
}

// Pull pages through server changes until the server reports no more. Each
// page is merged into the mirror before its checkpoint is stored, so a crash
// mid-pull re-fetches at most one page.
func (p *pullReconciler) Pull(ctx context.Context) error {
	log := logger.FromContext(ctx)

	for {
		cursor, err := p.checkpoint.Get(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}

		resp, err := p.transport.Pull(ctx, cursor, p.cfg.PullPageSize)
		if err != nil {
			if errors.Is(err, adapter.ErrUnreachable) {
				return fmt.Errorf("%w: %w", ErrOffline, err)
			}
			return fmt.Errorf("pull changes: %w", err)
		}

		merged, err := p.mergePage(ctx, resp.Changes)
		if err != nil {
			return err
		}

		if err = p.checkpoint.Set(ctx, resp.Checkpoint); err != nil {
			return fmt.Errorf("store checkpoint: %w", err)
		}

		log.Debug().
			Str("func", "pullReconciler.Pull").
			Int("changes", len(resp.Changes)).
			Int("merged", merged).
			Str("checkpoint", resp.Checkpoint).
			Msg("pull page merged")

		if !resp.HasMore {
			return nil
		}
	}
}

// mergePage applies one page of changes to the mirror. A record with an
// in-flight local edit is skipped: the local intent wins until it is pushed
// or its conflict is resolved, and the record resurfaces in a later pull.
func (p *pullReconciler) mergePage(ctx context.Context, changes []models.EntityChange) (int, error) {
	merged := 0
	touched := make(map[string][]string)

	for _, change := range changes {
		_, inFlight, err := p.ledger.GetInFlight(ctx, change.Entity, change.ID)
		if err != nil {
			return 0, fmt.Errorf("check in-flight for %s/%s: %w", change.Entity, change.ID, err)
		}
		if inFlight {
			continue
		}

		if err = p.mirror.Apply(ctx, change); err != nil {
			return 0, fmt.Errorf("apply change %s/%s: %w", change.Entity, change.ID, err)
		}

		merged++
		touched[change.Entity] = append(touched[change.Entity], change.ID)
	}

	for entity, ids := range touched {
		p.invalidation.Notify(entity, ids...)
	}

	return merged, nil
}
