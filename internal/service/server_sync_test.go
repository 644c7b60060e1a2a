package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/mock"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

func TestServerSyncService_ApplyPush_RequiresClientID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewServerSyncService(mock.NewMockSyncServerRepository(ctrl), logger.Nop())

	_, err := svc.ApplyPush(context.Background(), models.PushRequest{})
	assert.ErrorIs(t, err, ErrNoClientID)
}

func TestServerSyncService_ApplyPush_MixedOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockSyncServerRepository(ctrl)
	svc := NewServerSyncService(repo, logger.Nop())
	ctx := context.Background()

	applied := models.SyncOperation{OpID: "op-1", Entity: "invoice", Action: models.ActionCreate, EntityID: "local-1", Payload: []byte(`{}`)}
	conflicted := models.SyncOperation{OpID: "op-2", Entity: "invoice", Action: models.ActionUpdate, EntityID: "srv-1", Payload: []byte(`{}`)}
	rejected := models.SyncOperation{OpID: "op-3", Entity: "invoice", Action: models.ActionDelete, EntityID: "srv-404"}
	malformed := models.SyncOperation{OpID: "op-4", Entity: "", Action: models.ActionUpdate, EntityID: "x", Payload: []byte(`{}`)}

	repo.EXPECT().ApplyOperation(ctx, "client-1", applied).
		Return(store.OpOutcome{Applied: true, ServerID: "srv-9"}, nil)
	repo.EXPECT().ApplyOperation(ctx, "client-1", conflicted).
		Return(store.OpOutcome{Conflict: &models.ConflictResponse{OpID: "op-2", ConflictType: models.ConflictVersion}}, nil)
	repo.EXPECT().ApplyOperation(ctx, "client-1", rejected).
		Return(store.OpOutcome{Error: &models.ErrorResponse{OpID: "op-3", Code: "not_found"}}, nil)
	// malformed never reaches the repository

	resp, err := svc.ApplyPush(ctx, models.PushRequest{
		ClientID:   "client-1",
		Operations: []models.SyncOperation{applied, conflicted, rejected, malformed},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, "srv-9", resp.CreatedServerIDs["op-1"])
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "op-2", resp.Conflicts[0].OpID)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "op-3", resp.Errors[0].OpID)
	assert.Equal(t, "validation", resp.Errors[1].Code)
}

func TestServerSyncService_ApplyPush_DuplicateCountsProcessed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockSyncServerRepository(ctrl)
	svc := NewServerSyncService(repo, logger.Nop())
	ctx := context.Background()

	op := models.SyncOperation{OpID: "op-1", Entity: "invoice", Action: models.ActionUpdate, EntityID: "srv-1", Payload: []byte(`{}`)}

	repo.EXPECT().ApplyOperation(ctx, "client-1", op).Return(store.OpOutcome{Duplicate: true}, nil)

	resp, err := svc.ApplyPush(ctx, models.PushRequest{ClientID: "client-1", Operations: []models.SyncOperation{op}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed)
	assert.Empty(t, resp.Errors)
}

func TestServerSyncService_ApplyPush_InternalErrorDoesNotSinkBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockSyncServerRepository(ctrl)
	svc := NewServerSyncService(repo, logger.Nop())
	ctx := context.Background()

	broken := models.SyncOperation{OpID: "op-1", Entity: "invoice", Action: models.ActionUpdate, EntityID: "srv-1", Payload: []byte(`{}`)}
	fine := models.SyncOperation{OpID: "op-2", Entity: "invoice", Action: models.ActionUpdate, EntityID: "srv-2", Payload: []byte(`{}`)}

	repo.EXPECT().ApplyOperation(ctx, "client-1", broken).Return(store.OpOutcome{}, errors.New("db down"))
	repo.EXPECT().ApplyOperation(ctx, "client-1", fine).Return(store.OpOutcome{Applied: true}, nil)

	resp, err := svc.ApplyPush(ctx, models.PushRequest{ClientID: "client-1", Operations: []models.SyncOperation{broken, fine}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "internal", resp.Errors[0].Code)
}

func TestServerSyncService_Pull_ClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockSyncServerRepository(ctrl)
	svc := NewServerSyncService(repo, logger.Nop())
	ctx := context.Background()

	repo.EXPECT().ChangesSince(ctx, "", DefaultPullLimit).Return(nil, "0", false, nil)
	_, err := svc.Pull(ctx, "", 0)
	require.NoError(t, err)

	repo.EXPECT().ChangesSince(ctx, "7", MaxPullLimit).Return(nil, "7", false, nil)
	_, err = svc.Pull(ctx, "7", 100000)
	require.NoError(t, err)
}

func TestServerSyncService_Pull_PassesThroughPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockSyncServerRepository(ctrl)
	svc := NewServerSyncService(repo, logger.Nop())
	ctx := context.Background()

	changes := []models.EntityChange{{Entity: "invoice", ID: "srv-1", Action: models.ActionUpdate}}
	repo.EXPECT().ChangesSince(ctx, "41", 50).Return(changes, "42", true, nil)

	resp, err := svc.Pull(ctx, "41", 50)
	require.NoError(t, err)
	assert.Equal(t, changes, resp.Changes)
	assert.Equal(t, "42", resp.Checkpoint)
	assert.True(t, resp.HasMore)
	assert.False(t, resp.LastSyncTime.IsZero())
}
