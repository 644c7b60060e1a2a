package models

import (
	"encoding/json"
	"time"
)

// EntityChange is the unit returned by the pull protocol. Deletions are
// tombstoned (Deleted=true) rather than physically absent so a pull-then-merge
// cannot resurrect a deleted record.
type EntityChange struct {
	Entity    string          `json:"entity"`
	ID        string          `json:"id"`
	Action    SyncAction      `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Deleted   bool            `json:"deleted"`
}

// MirrorEntry is one row of the local read-side entity mirror.
type MirrorEntry struct {
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
}
