package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/mock"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

func newTestResolver(ctrl *gomock.Controller) (
	*conflictResolver,
	*mock.MockQueueRepository,
	*mock.MockLedgerRepository,
	*mock.MockMirrorRepository,
) {
	queue := mock.NewMockQueueRepository(ctrl)
	ledger := mock.NewMockLedgerRepository(ctrl)
	mirror := mock.NewMockMirrorRepository(ctrl)

	storages := &store.ClientStorages{
		Queue:  queue,
		Ledger: ledger,
		Mirror: mirror,
	}

	r := NewConflictResolver(testEngineConfig(), storages, NewInvalidation(), logger.Nop()).(*conflictResolver)
	return r, queue, ledger, mirror
}

func conflictedEntry() models.SyncLogEntry {
	return models.SyncLogEntry{
		OpID:     "op-1",
		Entity:   "invoice",
		Action:   models.ActionUpdate,
		EntityID: "srv-1",
		Payload:  []byte(`{"total":99}`),
		Status:   models.StatusConflict,
		Conflict: &models.ConflictData{
			ServerData:   []byte(`{"total":50}`),
			ConflictType: models.ConflictTimestamp,
			Message:      "stale edit",
		},
	}
}

func TestConflictResolver_AcceptClient_ReenqueuesForced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, queue, ledger, _ := newTestResolver(ctrl)
	ctx := context.Background()

	ledger.EXPECT().Get(ctx, "op-1").Return(conflictedEntry(), nil)
	ledger.EXPECT().UpdateStatus(ctx, "op-1", models.StatusPending, nil).Return(nil)
	queue.EXPECT().Enqueue(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.QueuedRequest) (models.QueuedRequest, error) {
			assert.Equal(t, "op-1", req.OpID)
			assert.True(t, req.Force)
			assert.Equal(t, models.ActionUpdate, req.Action)
			assert.JSONEq(t, `{"total":99}`, string(req.Payload))
			assert.Equal(t, 5, req.MaxRetries)
			return req, nil
		})

	require.NoError(t, r.AcceptClient(ctx, "op-1"))
}

func TestConflictResolver_AcceptServer_AdoptsServerCopy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, queue, ledger, mirror := newTestResolver(ctrl)
	ctx := context.Background()

	ledger.EXPECT().Get(ctx, "op-1").Return(conflictedEntry(), nil)
	mirror.EXPECT().Apply(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, change models.EntityChange) error {
			assert.Equal(t, "invoice", change.Entity)
			assert.Equal(t, "srv-1", change.ID)
			assert.JSONEq(t, `{"total":50}`, string(change.Data))
			assert.False(t, change.Deleted)
			return nil
		})
	ledger.EXPECT().UpdateStatus(ctx, "op-1", models.StatusSynced, nil).Return(nil)
	queue.EXPECT().Ack(ctx, "op-1").Return(store.ErrRequestNotFound)

	require.NoError(t, r.AcceptServer(ctx, "op-1"))
}

func TestConflictResolver_AcceptServer_MissingServerCopyTombstones(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, queue, ledger, mirror := newTestResolver(ctrl)
	ctx := context.Background()

	entry := conflictedEntry()
	entry.Conflict = &models.ConflictData{ConflictType: models.ConflictState, Message: "record was deleted on the server"}

	ledger.EXPECT().Get(ctx, "op-1").Return(entry, nil)
	mirror.EXPECT().Apply(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, change models.EntityChange) error {
			assert.True(t, change.Deleted)
			assert.Equal(t, models.ActionDelete, change.Action)
			return nil
		})
	ledger.EXPECT().UpdateStatus(ctx, "op-1", models.StatusSynced, nil).Return(nil)
	queue.EXPECT().Ack(ctx, "op-1").Return(nil)

	require.NoError(t, r.AcceptServer(ctx, "op-1"))
}

func TestConflictResolver_Manual_ClosesEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, queue, ledger, mirror := newTestResolver(ctrl)
	ctx := context.Background()

	ledger.EXPECT().Get(ctx, "op-1").Return(conflictedEntry(), nil)
	ledger.EXPECT().UpdateStatus(ctx, "op-1", models.StatusSynced, nil).Return(nil)
	queue.EXPECT().Ack(ctx, "op-1").Return(store.ErrRequestNotFound)
	// the mirror is left alone, the operator's edit already went through
	// the normal write path
	mirror.EXPECT().Apply(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, r.Manual(ctx, "op-1"))
}

func TestConflictResolver_RejectsNonConflictedEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, _, ledger, _ := newTestResolver(ctrl)
	ctx := context.Background()

	entry := conflictedEntry()
	entry.Status = models.StatusSynced

	ledger.EXPECT().Get(ctx, "op-1").Return(entry, nil).Times(3)

	assert.ErrorIs(t, r.AcceptClient(ctx, "op-1"), ErrNotInConflict)
	assert.ErrorIs(t, r.AcceptServer(ctx, "op-1"), ErrNotInConflict)
	assert.ErrorIs(t, r.Manual(ctx, "op-1"), ErrNotInConflict)
}
