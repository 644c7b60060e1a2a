// Package adapter provides transport-layer abstractions for talking to the
// sync server.
//
// The primary abstraction is [SyncTransport], which decouples the engine from
// the underlying protocol. The package ships an HTTP/JSON implementation
// ([NewHTTPSyncTransport]).
//
// Error values defined in errors.go are mapped from transport failures and
// HTTP status codes by mapHTTPError so that callers can use [errors.Is] to
// decide between retrying ([ErrUnreachable], [ErrTransient]) and giving up
// ([ErrValidation], [ErrUnauthorized]).
package adapter

import (
	"context"

	"github.com/tillware/syncengine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/transport_mock.go -package=mock

// SyncTransport defines transport-agnostic communication with the sync
// server. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
type SyncTransport interface {
	// Push delivers a batch of queued operations to the server and returns
	// the per-operation verdicts. The request as a whole fails only on
	// transport or authentication errors; individual operation failures
	// come back inside the response.
	Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// Pull fetches server-side changes recorded after the checkpoint
	// cursor, at most limit at a time. An empty checkpoint requests the
	// full history.
	Pull(ctx context.Context, checkpoint string, limit int) (models.PullResponse, error)

	// Ping probes server reachability without touching sync state.
	Ping(ctx context.Context) error
}
