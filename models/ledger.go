package models

import (
	"encoding/json"
	"time"
)

// SyncStatus is the lifecycle state of a ledger entry.
type SyncStatus string

const (
	StatusPending  SyncStatus = "pending"
	StatusSynced   SyncStatus = "synced"
	StatusConflict SyncStatus = "conflict"
	StatusFailed   SyncStatus = "failed"
)

// ConflictType classifies why server and client disagree.
type ConflictType string

const (
	// ConflictTimestamp means the client edit is based on stale data
	// (server copy changed after the client last read it).
	ConflictTimestamp ConflictType = "timestamp"

	// ConflictVersion means an optimistic-lock version mismatch.
	ConflictVersion ConflictType = "version"

	// ConflictState means a business-rule incompatibility, such as an
	// edit against a finalized or deleted record.
	ConflictState ConflictType = "state"
)

// ConflictData holds both sides of a detected divergence so the
// operator-facing conflict view can show them together.
type ConflictData struct {
	ServerData   json.RawMessage `json:"serverData,omitempty"`
	ConflictType ConflictType    `json:"conflictType"`
	Message      string          `json:"message,omitempty"`
}

// SyncLogEntry is one row of the sync ledger: the status record of a single
// entity mutation, kept independently of the raw request queue so resolved
// history stays queryable after the request itself is gone.
//
// At most one entry with status pending or conflict exists per
// (Entity, EntityID) pair; a second local edit before the first is resolved
// replaces Payload and ClientUpdatedAt in place.
type SyncLogEntry struct {
	ID              int64           `json:"id"`
	OpID            string          `json:"op_id"`
	Entity          string          `json:"entity"`
	Action          SyncAction      `json:"action"`
	EntityID        string          `json:"entity_id"`
	Payload         json.RawMessage `json:"payload"`
	ClientID        string          `json:"client_id"`
	ClientUpdatedAt time.Time       `json:"client_updated_at"`
	Status          SyncStatus      `json:"status"`
	Conflict        *ConflictData   `json:"conflict,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StatusCounts is the always-queryable summary the UI polls.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Conflict int `json:"conflict"`
	Failed   int `json:"failed"`
}
