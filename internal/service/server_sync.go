package service

import (
	"context"
	"fmt"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

// Pull page-size bounds applied by the server regardless of what the client
// asks for.
const (
	DefaultPullLimit = 100
	MaxPullLimit     = 500
)

type serverSyncService struct {
	repo   store.SyncServerRepository
	logger *logger.Logger
}

func NewServerSyncService(repo store.SyncServerRepository, logger *logger.Logger) ServerSyncService {
	return &serverSyncService{
		repo:   repo,
		logger: logger,
	}
}

// ApplyPush runs the batch operation by operation. One bad operation never
// sinks the batch: it is reported in the response and the rest proceed, so a
// client draining its queue keeps making progress.
func (s *serverSyncService) ApplyPush(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	if req.ClientID == "" {
		return models.PushResponse{}, ErrNoClientID
	}

	log := logger.FromContext(ctx)
	resp := models.PushResponse{}

	for _, op := range req.Operations {
		if opErr := validateOperation(op); opErr != nil {
			resp.Errors = append(resp.Errors, *opErr)
			continue
		}

		outcome, err := s.repo.ApplyOperation(ctx, req.ClientID, op)
		if err != nil {
			log.Err(err).
				Str("func", "serverSyncService.ApplyPush").
				Str("op_id", op.OpID).
				Msg("failed to apply operation")
			resp.Errors = append(resp.Errors, models.ErrorResponse{
				OpID:  op.OpID,
				Error: "internal error applying operation",
				Code:  "internal",
			})
			continue
		}

		switch {
		case outcome.Conflict != nil:
			resp.Conflicts = append(resp.Conflicts, *outcome.Conflict)
		case outcome.Error != nil:
			resp.Errors = append(resp.Errors, *outcome.Error)
		default:
			resp.Processed++
			if outcome.ServerID != "" {
				if resp.CreatedServerIDs == nil {
					resp.CreatedServerIDs = make(map[string]string)
				}
				resp.CreatedServerIDs[op.OpID] = outcome.ServerID
			}
		}
	}

	return resp, nil
}

// Pull returns one page of the change log after the checkpoint cursor.
func (s *serverSyncService) Pull(ctx context.Context, checkpoint string, limit int) (models.PullResponse, error) {
	if limit <= 0 {
		limit = DefaultPullLimit
	}
	if limit > MaxPullLimit {
		limit = MaxPullLimit
	}

	changes, cursor, hasMore, err := s.repo.ChangesSince(ctx, checkpoint, limit)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("read change log: %w", err)
	}

	return models.PullResponse{
		Changes:      changes,
		Checkpoint:   cursor,
		LastSyncTime: nowUTC(),
		HasMore:      hasMore,
	}, nil
}

func validateOperation(op models.SyncOperation) *models.ErrorResponse {
	reject := func(msg string) *models.ErrorResponse {
		return &models.ErrorResponse{OpID: op.OpID, Error: msg, Code: "validation"}
	}

	if op.OpID == "" {
		return reject("opId is required")
	}
	if op.Entity == "" {
		return reject("entity is required")
	}
	if op.EntityID == "" {
		return reject("entityId is required")
	}
	if !op.Action.Valid() {
		return reject(fmt.Sprintf("unknown action %q", op.Action))
	}
	if op.Action != models.ActionDelete && len(op.Payload) == 0 {
		return reject("payload is required")
	}
	return nil
}
