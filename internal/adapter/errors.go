package adapter

import "errors"

var (
	// ErrUnreachable means the server could not be contacted at all. The
	// caller should treat the engine as offline and retry later.
	ErrUnreachable = errors.New("server unreachable")

	// ErrTransient means the server answered with a temporary failure. The
	// operation stays queued and is retried with backoff.
	ErrTransient = errors.New("transient server error")

	// ErrValidation means the server rejected the request as malformed.
	// Retrying the same payload cannot succeed.
	ErrValidation = errors.New("request rejected by server")

	// ErrUnauthorized means the client token was missing, expired or
	// invalid.
	ErrUnauthorized = errors.New("client unauthorized")
)
