package store

import (
	"context"

	"github.com/tillware/syncengine/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// QueueRepository is the durable write-ahead queue of mutation requests.
// Requests are replayed oldest-first and are only removed by Ack; a crash
// between DequeueBatch and Ack leaves them in place for the next drain.
type QueueRepository interface {
	// Enqueue appends a request and returns it with the assigned queue id.
	Enqueue(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error)
	// DequeueBatch returns up to n replayable requests oldest-first
	// without removing them. Requests past their retry cap are excluded.
	DequeueBatch(ctx context.Context, n int) ([]models.QueuedRequest, error)
	// Ack removes a request after its confirmed replay.
	Ack(ctx context.Context, opID string) error
	// BumpRetry increments the retry counter of a request.
	BumpRetry(ctx context.Context, opID string) error
	// MarkFailed excludes a request from automatic replay while retaining
	// it for manual inspection.
	MarkFailed(ctx context.Context, opID string) error
	// UpdatePayload replaces the intent of a queued request in place,
	// keeping its op_id and queue position.
	UpdatePayload(ctx context.Context, opID string, action models.SyncAction, payload []byte) error
	// GetAll returns every queued request, including failed ones.
	GetAll(ctx context.Context) ([]models.QueuedRequest, error)
	// Size returns the number of requests eligible for replay.
	Size(ctx context.Context) (int, error)
}

// LedgerRepository records the lifecycle status of every synchronized entity
// mutation, independently of the raw request queue.
type LedgerRepository interface {
	// Record upserts the in-flight entry for (entity, entityID). When one
	// already exists in pending or conflict, its payload, action, and
	// client timestamp are replaced in place under the original op_id and
	// the entry returns to pending. The bool reports whether an existing
	// entry was replaced rather than a new one inserted.
	Record(ctx context.Context, entry models.SyncLogEntry) (models.SyncLogEntry, bool, error)
	// UpdateStatus transitions an entry, attaching conflict data when the
	// new status is conflict.
	UpdateStatus(ctx context.Context, opID string, status models.SyncStatus, conflict *models.ConflictData) error
	// Get returns the entry with the given op_id.
	Get(ctx context.Context, opID string) (models.SyncLogEntry, error)
	// GetInFlight returns the pending or conflict entry for an entity
	// record, if any.
	GetInFlight(ctx context.Context, entity, entityID string) (models.SyncLogEntry, bool, error)
	// ListByStatus returns all entries with the given status, oldest first.
	ListByStatus(ctx context.Context, status models.SyncStatus) ([]models.SyncLogEntry, error)
	// Counts returns the pending/conflict/failed totals the UI polls.
	Counts(ctx context.Context) (models.StatusCounts, error)
}

// MirrorRepository is the local read-side copy of server entities.
type MirrorRepository interface {
	// Apply replaces the mirror row for the change's entity record.
	// Tombstoned changes mark the row deleted instead of removing it.
	Apply(ctx context.Context, change models.EntityChange) error
	// Get returns the mirror row for an entity record.
	Get(ctx context.Context, entity, entityID string) (models.MirrorEntry, error)
	// Rekey renames a locally-generated placeholder id to the
	// server-assigned id.
	Rekey(ctx context.Context, entity, localID, serverID string) error
}

// CheckpointRepository stores the pull cursor. The cursor is opaque to the
// client and only advanced after the corresponding batch is fully merged.
type CheckpointRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, cursor string) error
}

// IDMapRepository records opId-confirmed mappings from locally-generated
// placeholder ids to server-assigned ids so later operations can be rewritten
// before they are sent.
type IDMapRepository interface {
	Put(ctx context.Context, entity, localID, serverID string) error
	// Resolve returns the server id for a local id, or the input id
	// unchanged (and false) when no mapping exists.
	Resolve(ctx context.Context, entity, id string) (string, bool, error)
}
