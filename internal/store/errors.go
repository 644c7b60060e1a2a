package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRequestNotFound is returned when an ack, retry bump, or payload
	// rewrite targets a queued request (identified by op_id) that is not
	// in the durable queue.
	ErrRequestNotFound = errors.New("queued request was not found")

	// ErrLedgerEntryNotFound is returned when a status update or lookup
	// targets a ledger entry that does not exist.
	ErrLedgerEntryNotFound = errors.New("ledger entry was not found")

	// ErrMirrorEntryNotFound is returned when a lookup targets an entity
	// that has no local mirror row.
	ErrMirrorEntryNotFound = errors.New("mirror entry was not found")

	// ErrBadCursor is returned when a pull presents a checkpoint cursor
	// the change log cannot parse.
	ErrBadCursor = errors.New("malformed checkpoint cursor")
)
