// Package utils provides small helpers shared across the transport layers:
// type-safe context keys, JSON response writing, and installation-token
// generation and validation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys. Using a dedicated type
// instead of a plain string prevents key collisions with other packages.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// ClientIDCtxKey is the key under which the authenticated installation's
// client id is stored in the request context.
var ClientIDCtxKey = contextKey("clientID")

// GetClientIDFromContext retrieves the client id from the context. The ok
// flag is false when the value is missing or has an unexpected type.
func GetClientIDFromContext(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDCtxKey).(string)
	return clientID, ok
}
