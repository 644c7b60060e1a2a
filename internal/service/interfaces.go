package service

import (
	"context"
	"time"

	"github.com/tillware/syncengine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// PushReconciler replays the durable queue against the server.
type PushReconciler interface {
	// Drain pushes queued requests in batches until the queue is empty or
	// the transport reports the server unreachable. Per-operation verdicts
	// (applied, conflict, rejected) are folded into the ledger as they
	// arrive; Drain returns an error only for batch-level failures.
	Drain(ctx context.Context) error
}

// PullReconciler merges server-side changes into the local mirror.
type PullReconciler interface {
	// Pull pages through server changes after the stored checkpoint and
	// applies them to the mirror. The checkpoint advances only after a
	// page has been fully merged. Records with an in-flight local edit
	// are left untouched.
	Pull(ctx context.Context) error
}

// ConflictResolver settles ledger entries the server refused.
type ConflictResolver interface {
	// AcceptClient re-enqueues the conflicted operation with conflict
	// checks disabled, so the local version overwrites the server's.
	AcceptClient(ctx context.Context, opID string) error

	// AcceptServer adopts the server's version into the local mirror and
	// closes the entry as synced.
	AcceptServer(ctx context.Context, opID string) error

	// Manual closes the entry as synced after the operator has corrected
	// the record through the normal write path.
	Manual(ctx context.Context, opID string) error
}

// Scheduler decides when reconciliation runs: on demand, on a timer, and on
// reachability transitions.
type Scheduler interface {
	// ProcessQueue runs one push drain. Concurrent calls collapse into
	// one; the loser returns immediately with no error.
	ProcessQueue(ctx context.Context) error

	// SyncNow runs a full cycle: push drain followed by a pull.
	SyncNow(ctx context.Context) error

	// StartAutoSync launches the background loop. It syncs every interval
	// and immediately when the monitor reports the server back online.
	// Batch-level failures back off exponentially up to the configured
	// ceiling. Any previously running loop is stopped first.
	StartAutoSync(ctx context.Context, interval time.Duration)

	// StopAutoSync signals the background loop to exit and blocks until
	// it has fully terminated.
	StopAutoSync()

	// Subscribe registers a progress callback invoked with true when a
	// drain starts and false when it finishes.
	Subscribe(fn func(processing bool))
}

// ServerSyncService is the server-side application layer behind the push and
// pull endpoints.
type ServerSyncService interface {
	// ApplyPush applies a batch of client operations and reports the
	// per-operation verdicts. Malformed operations come back as errors in
	// the response; only an empty client id fails the batch.
	ApplyPush(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// Pull returns one page of recorded changes after the checkpoint
	// cursor.
	Pull(ctx context.Context, checkpoint string, limit int) (models.PullResponse, error)
}
