package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/mock"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/models"
)

func newTestPullReconciler(ctrl *gomock.Controller) (
	*pullReconciler,
	*mock.MockLedgerRepository,
	*mock.MockMirrorRepository,
	*mock.MockCheckpointRepository,
	*mock.MockSyncTransport,
) {
	ledger := mock.NewMockLedgerRepository(ctrl)
	mirror := mock.NewMockMirrorRepository(ctrl)
	checkpoint := mock.NewMockCheckpointRepository(ctrl)
	transport := mock.NewMockSyncTransport(ctrl)

	storages := &store.ClientStorages{
		Ledger:     ledger,
		Mirror:     mirror,
		Checkpoint: checkpoint,
	}

	p := NewPullReconciler(testEngineConfig(), storages, transport, NewInvalidation(), logger.Nop()).(*pullReconciler)
	return p, ledger, mirror, checkpoint, transport
}

func TestPullReconciler_Pull_MergesAndAdvancesCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, ledger, mirror, checkpoint, transport := newTestPullReconciler(ctrl)
	ctx := context.Background()

	change := models.EntityChange{
		Entity:    "invoice",
		ID:        "srv-1",
		Action:    models.ActionUpdate,
		Data:      []byte(`{"total":42}`),
		UpdatedAt: time.Now().UTC(),
	}

	checkpoint.EXPECT().Get(ctx).Return("10", nil)
	transport.EXPECT().Pull(ctx, "10", 10).Return(models.PullResponse{
		Changes:    []models.EntityChange{change},
		Checkpoint: "11",
	}, nil)
	ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-1").Return(models.SyncLogEntry{}, false, nil)
	mirror.EXPECT().Apply(ctx, change).Return(nil)
	checkpoint.EXPECT().Set(ctx, "11").Return(nil)

	require.NoError(t, p.Pull(ctx))
}

func TestPullReconciler_Pull_SkipsInFlightRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, ledger, mirror, checkpoint, transport := newTestPullReconciler(ctrl)
	ctx := context.Background()

	guarded := models.EntityChange{Entity: "invoice", ID: "srv-1", Action: models.ActionUpdate, Data: []byte(`{}`)}
	free := models.EntityChange{Entity: "invoice", ID: "srv-2", Action: models.ActionUpdate, Data: []byte(`{}`)}

	checkpoint.EXPECT().Get(ctx).Return("", nil)
	transport.EXPECT().Pull(ctx, "", 10).Return(models.PullResponse{
		Changes:    []models.EntityChange{guarded, free},
		Checkpoint: "2",
	}, nil)

	// srv-1 has a pending local edit, it must not be clobbered
	ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-1").
		Return(models.SyncLogEntry{Status: models.StatusPending}, true, nil)
	ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-2").
		Return(models.SyncLogEntry{}, false, nil)
	mirror.EXPECT().Apply(ctx, free).Return(nil)

	// the checkpoint still advances: the skipped record resurfaces via its
	// own conflict or a later change
	checkpoint.EXPECT().Set(ctx, "2").Return(nil)

	require.NoError(t, p.Pull(ctx))
}

func TestPullReconciler_Pull_PagesUntilDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, ledger, mirror, checkpoint, transport := newTestPullReconciler(ctrl)
	ctx := context.Background()

	first := models.EntityChange{Entity: "invoice", ID: "srv-1", Action: models.ActionCreate, Data: []byte(`{}`)}
	second := models.EntityChange{Entity: "invoice", ID: "srv-2", Action: models.ActionDelete, Deleted: true}

	gomock.InOrder(
		checkpoint.EXPECT().Get(ctx).Return("", nil),
		transport.EXPECT().Pull(ctx, "", 10).Return(models.PullResponse{
			Changes:    []models.EntityChange{first},
			Checkpoint: "1",
			HasMore:    true,
		}, nil),
		ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-1").Return(models.SyncLogEntry{}, false, nil),
		mirror.EXPECT().Apply(ctx, first).Return(nil),
		checkpoint.EXPECT().Set(ctx, "1").Return(nil),

		checkpoint.EXPECT().Get(ctx).Return("1", nil),
		transport.EXPECT().Pull(ctx, "1", 10).Return(models.PullResponse{
			Changes:    []models.EntityChange{second},
			Checkpoint: "2",
		}, nil),
		ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-2").Return(models.SyncLogEntry{}, false, nil),
		mirror.EXPECT().Apply(ctx, second).Return(nil),
		checkpoint.EXPECT().Set(ctx, "2").Return(nil),
	)

	require.NoError(t, p.Pull(ctx))
}

func TestPullReconciler_Pull_UnreachableLeavesCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, _, _, checkpoint, transport := newTestPullReconciler(ctrl)
	ctx := context.Background()

	checkpoint.EXPECT().Get(ctx).Return("5", nil)
	transport.EXPECT().Pull(ctx, "5", 10).Return(models.PullResponse{}, adapter.ErrUnreachable)

	err := p.Pull(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOffline)
}

func TestPullReconciler_Pull_InvalidatesMergedRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p, ledger, mirror, checkpoint, transport := newTestPullReconciler(ctrl)
	ctx := context.Background()

	var gotEntity string
	var gotIDs []string
	p.invalidation.Register(func(entity string, ids []string) {
		gotEntity = entity
		gotIDs = ids
	})

	change := models.EntityChange{Entity: "invoice", ID: "srv-7", Action: models.ActionUpdate, Data: []byte(`{}`)}

	checkpoint.EXPECT().Get(ctx).Return("", nil)
	transport.EXPECT().Pull(ctx, "", 10).Return(models.PullResponse{
		Changes:    []models.EntityChange{change},
		Checkpoint: "7",
	}, nil)
	ledger.EXPECT().GetInFlight(ctx, "invoice", "srv-7").Return(models.SyncLogEntry{}, false, nil)
	mirror.EXPECT().Apply(ctx, change).Return(nil)
	checkpoint.EXPECT().Set(ctx, "7").Return(nil)

	require.NoError(t, p.Pull(ctx))
	assert.Equal(t, "invoice", gotEntity)
	assert.Equal(t, []string{"srv-7"}, gotIDs)
}
