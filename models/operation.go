package models

import (
	"encoding/json"
	"time"
)

// SyncAction identifies the kind of mutation an operation carries.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// Valid reports whether the action is one of the three known mutations.
func (a SyncAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// QueuedRequest is one intended mutation waiting in the durable replay queue.
// The queue id is assigned by the store on insert and defines replay order;
// OpID is the idempotency key and stays the same across retries of the same
// request.
type QueuedRequest struct {
	ID         int64           `json:"id"`
	OpID       string          `json:"op_id"`
	Entity     string          `json:"entity"`
	Action     SyncAction      `json:"action"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
	Force      bool            `json:"force"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	Failed     bool            `json:"failed"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SyncOperation is the unit exchanged in the push protocol.
type SyncOperation struct {
	OpID            string          `json:"opId"`
	Entity          string          `json:"entity"`
	Action          SyncAction      `json:"action"`
	EntityID        string          `json:"entityId"`
	Payload         json.RawMessage `json:"payload"`
	ClientUpdatedAt time.Time       `json:"clientUpdatedAt"`
	ClientID        string          `json:"clientId"`

	// Force bypasses server-side conflict checks. Set only by the
	// accept-client conflict resolution path.
	Force bool `json:"force,omitempty"`
}

// Operation converts a queued request into its wire form.
func (q QueuedRequest) Operation(clientID string, clientUpdatedAt time.Time) SyncOperation {
	return SyncOperation{
		OpID:            q.OpID,
		Entity:          q.Entity,
		Action:          q.Action,
		EntityID:        q.EntityID,
		Payload:         q.Payload,
		ClientUpdatedAt: clientUpdatedAt,
		Force:           q.Force,
		ClientID:        clientID,
	}
}
