package service

import "errors"

var (
	ErrInvalidEntity   = errors.New("entity name is required")
	ErrInvalidAction   = errors.New("invalid sync action")
	ErrInvalidEntityID = errors.New("entity id is required")
	ErrEmptyPayload    = errors.New("payload is required")

	ErrOffline = errors.New("server is not reachable")

	ErrNotInConflict     = errors.New("entry is not in conflict")
	ErrUnknownResolution = errors.New("unknown conflict resolution")

	ErrNoClientID = errors.New("client id is required")
)
