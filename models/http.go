package models

import "time"

// PushRequest is the batch of local operations sent to the server.
type PushRequest struct {
	ClientID   string          `json:"clientId"`
	Operations []SyncOperation `json:"operations"`
}

// ConflictResponse describes one operation the server refused because the
// targeted record diverged. Both sides of the disagreement are attached.
type ConflictResponse struct {
	OpID         string       `json:"opId"`
	Entity       string       `json:"entity"`
	Action       SyncAction   `json:"action"`
	ConflictType ConflictType `json:"conflictType"`
	ClientData   any          `json:"clientData,omitempty"`
	ServerData   any          `json:"serverData,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// ErrorResponse describes one operation the server could not apply for a
// non-conflict reason (validation failure, internal error).
type ErrorResponse struct {
	OpID  string `json:"opId"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// PushResponse reports the per-operation outcome of a push batch.
// Processed counts operations the server accepted, including replays it
// suppressed as duplicates. CreatedServerIDs maps the opId of each applied
// create to the entity id the server assigned.
type PushResponse struct {
	Processed        int                `json:"processed"`
	CreatedServerIDs map[string]string  `json:"createdServerIds,omitempty"`
	Conflicts        []ConflictResponse `json:"conflicts,omitempty"`
	Errors           []ErrorResponse    `json:"errors,omitempty"`
}

// PullResponse is one page of server-side changes since a checkpoint.
// Checkpoint is an opaque cursor; the client stores it verbatim and passes it
// back on the next pull.
type PullResponse struct {
	Changes      []EntityChange `json:"changes"`
	Checkpoint   string         `json:"checkpoint"`
	LastSyncTime time.Time      `json:"lastSyncTime"`
	HasMore      bool           `json:"hasMore"`
}
