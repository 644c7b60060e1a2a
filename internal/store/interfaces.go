package store

import (
	"context"

	"github.com/tillware/syncengine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_store_mock.go -package=mock

// OpOutcome is the result of applying one pushed operation on the server.
// Exactly one of Applied/Duplicate/Conflict/Error describes the outcome;
// ServerID is set for applied creates that were assigned a server id.
type OpOutcome struct {
	Applied   bool
	Duplicate bool
	ServerID  string
	Conflict  *models.ConflictResponse
	Error     *models.ErrorResponse
}

// SyncServerRepository is the authoritative server-side store behind the
// push/pull endpoints.
type SyncServerRepository interface {
	// ApplyOperation applies one operation transactionally: op_id dedupe,
	// conflict detection against the current entity row, entity upsert,
	// and a change_log append. A redelivered op_id reports Duplicate
	// without touching entity state.
	ApplyOperation(ctx context.Context, clientID string, op models.SyncOperation) (OpOutcome, error)

	// ChangesSince returns up to limit change-log rows after the opaque
	// cursor, the cursor of the last returned row, and whether more rows
	// remain.
	ChangesSince(ctx context.Context, cursor string, limit int) ([]models.EntityChange, string, bool, error)
}
