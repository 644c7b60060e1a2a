package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/reachability"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

// localIDPrefix marks entity ids minted locally before the server has
// assigned one. The server recognises the prefix and replaces it on create.
const localIDPrefix = "local-"

// Engine is the embedding application's entry point to the sync machinery.
// Mutations go through Submit, which records them durably before any network
// activity; reads go against the local mirror. Everything else (replay,
// pull, conflicts) happens in the background once Init is called.
type Engine struct {
	cfg          config.Engine
	storages     *store.ClientStorages
	transport    adapter.SyncTransport
	monitor      reachability.Monitor
	scheduler    Scheduler
	resolver     ConflictResolver
	invalidation *Invalidation
	logger       *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewEngine wires the engine from its parts. The monitor is owned by the
// caller in the sense that the caller picks the implementation; the engine
// starts and stops it.
func NewEngine(
	cfg config.Engine,
	storages *store.ClientStorages,
	transport adapter.SyncTransport,
	monitor reachability.Monitor,
	logger *logger.Logger,
) *Engine {
	invalidation := NewInvalidation()
	pusher := NewPushReconciler(cfg, storages, transport, invalidation, logger)
	puller := NewPullReconciler(cfg, storages, transport, invalidation, logger)

	return &Engine{
		cfg:          cfg,
		storages:     storages,
		transport:    transport,
		monitor:      monitor,
		scheduler:    NewScheduler(cfg, pusher, puller, monitor, logger),
		resolver:     NewConflictResolver(cfg, storages, invalidation, logger),
		invalidation: invalidation,
		logger:       logger,
	}
}

// Init starts the reachability monitor and the background sync loop.
func (e *Engine) Init(ctx context.Context) {
	e.monitor.Start(ctx)
	e.scheduler.StartAutoSync(ctx, e.cfg.PullInterval)

	e.logger.Info().
		Str("func", "Engine.Init").
		Str("client_id", e.cfg.ClientID).
		Msg("sync engine started")
}

// Close stops background work and releases the local database.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.scheduler.StopAutoSync()
		e.monitor.Stop()
		e.closeErr = e.storages.Close()
	})
	return e.closeErr
}

// Submit records one mutation. The request is durably queued and the ledger
// updated before Submit returns. Unless the engine is configured
// offline-first, Submit then attempts immediate delivery while the server is
// reachable; offline-first installations leave delivery entirely to the
// background cadence. A second submit against the same record while the first
// is still in flight replaces the earlier intent in place (last-writer-wins
// locally), so at most one in-flight entry exists per record.
//
// For creates with an empty entityID a placeholder id is minted and
// returned inside the entry; the server assigns the permanent id on push.
func (e *Engine) Submit(ctx context.Context, entity string, action models.SyncAction, entityID string, payload json.RawMessage) (models.SyncLogEntry, error) {
	if strings.TrimSpace(entity) == "" {
		return models.SyncLogEntry{}, ErrInvalidEntity
	}
	if !action.Valid() {
		return models.SyncLogEntry{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if entityID == "" {
		if action != models.ActionCreate {
			return models.SyncLogEntry{}, ErrInvalidEntityID
		}
		entityID = localIDPrefix + uuid.NewString()
	}
	if action != models.ActionDelete && len(payload) == 0 {
		return models.SyncLogEntry{}, ErrEmptyPayload
	}

	now := nowUTC()
	entry := models.SyncLogEntry{
		OpID:            uuid.NewString(),
		Entity:          entity,
		Action:          action,
		EntityID:        entityID,
		Payload:         payload,
		ClientID:        e.cfg.ClientID,
		ClientUpdatedAt: now,
		Status:          models.StatusPending,
	}

	recorded, replaced, err := e.storages.Ledger.Record(ctx, entry)
	if err != nil {
		return models.SyncLogEntry{}, fmt.Errorf("record ledger entry: %w", err)
	}

	if err = e.upsertQueued(ctx, recorded, replaced); err != nil {
		return models.SyncLogEntry{}, err
	}

	// optimistic local apply so reads see the edit immediately
	if err = e.storages.Mirror.Apply(ctx, models.EntityChange{
		Entity:    entity,
		ID:        entityID,
		Action:    action,
		Data:      payload,
		UpdatedAt: now,
		Deleted:   action == models.ActionDelete,
	}); err != nil {
		return models.SyncLogEntry{}, fmt.Errorf("apply local change: %w", err)
	}

	e.invalidation.Notify(entity, entityID)

	// Write-through: the request is durable already, so an unreachable
	// server just leaves it queued for the next drain.
	if !e.cfg.OfflineFirst && e.monitor.Online() {
		if drainErr := e.scheduler.ProcessQueue(ctx); drainErr != nil && !errors.Is(drainErr, ErrOffline) {
			e.logger.Warn().
				Str("func", "Engine.Submit").
				Err(drainErr).
				Msg("submit-triggered drain failed")
		}
	}

	return recorded, nil
}

// upsertQueued keeps the queue row in step with the ledger entry: a replaced
// in-flight entry rewrites the surviving request under its original op_id, a
// fresh entry enqueues a new one.
func (e *Engine) upsertQueued(ctx context.Context, entry models.SyncLogEntry, replaced bool) error {
	if replaced {
		err := e.storages.Queue.UpdatePayload(ctx, entry.OpID, entry.Action, entry.Payload)
		if err == nil {
			return nil
		}
		// a conflicted entry has no queue row anymore, fall through to
		// enqueue a fresh one under the same op_id
		if !errors.Is(err, store.ErrRequestNotFound) {
			return fmt.Errorf("update queued request %s: %w", entry.OpID, err)
		}
	}

	_, err := e.storages.Queue.Enqueue(ctx, models.QueuedRequest{
		OpID:       entry.OpID,
		Entity:     entry.Entity,
		Action:     entry.Action,
		EntityID:   entry.EntityID,
		Payload:    entry.Payload,
		MaxRetries: e.cfg.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("enqueue request %s: %w", entry.OpID, err)
	}
	return nil
}

// Get reads a record from the local mirror, following the id map so callers
// can keep using a placeholder id after the server assigned a permanent one.
func (e *Engine) Get(ctx context.Context, entity, entityID string) (models.MirrorEntry, error) {
	resolved, _, err := e.storages.IDMap.Resolve(ctx, entity, entityID)
	if err != nil {
		return models.MirrorEntry{}, fmt.Errorf("resolve id %s/%s: %w", entity, entityID, err)
	}
	return e.storages.Mirror.Get(ctx, entity, resolved)
}

// Counts returns the pending/conflict/failed ledger totals.
func (e *Engine) Counts(ctx context.Context) (models.StatusCounts, error) {
	return e.storages.Ledger.Counts(ctx)
}

// Conflicts lists ledger entries awaiting a resolution, oldest first.
func (e *Engine) Conflicts(ctx context.Context) ([]models.SyncLogEntry, error) {
	return e.storages.Ledger.ListByStatus(ctx, models.StatusConflict)
}

// Resolve settles a conflicted entry.
func (e *Engine) Resolve(ctx context.Context, opID string, resolution Resolution) error {
	switch resolution {
	case ResolutionAcceptClient:
		return e.resolver.AcceptClient(ctx, opID)
	case ResolutionAcceptServer:
		return e.resolver.AcceptServer(ctx, opID)
	case ResolutionManual:
		return e.resolver.Manual(ctx, opID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResolution, resolution)
	}
}

// SyncNow forces a full push and pull cycle outside the regular cadence.
func (e *Engine) SyncNow(ctx context.Context) error {
	return e.scheduler.SyncNow(ctx)
}

// Online reports the monitor's last known reachability state.
func (e *Engine) Online() bool {
	return e.monitor.Online()
}

// OnInvalidate registers a mirror-change listener.
func (e *Engine) OnInvalidate(fn InvalidationFunc) {
	e.invalidation.Register(fn)
}

// OnSyncProgress registers a callback invoked with true when a drain starts
// and false when it finishes, for UI progress indication.
func (e *Engine) OnSyncProgress(fn func(processing bool)) {
	e.scheduler.Subscribe(fn)
}
