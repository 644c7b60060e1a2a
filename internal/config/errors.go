package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or invalid. Callers should match them with [errors.Is].
var (
	// ErrInvalidEngineConfigs indicates invalid engine settings
	// (for example, a missing client ID or server base URL).
	ErrInvalidEngineConfigs = errors.New("invalid engine configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty local database path).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidServerConfigs indicates invalid reference server settings
	// (for example, a missing listen address or token sign key).
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
)
