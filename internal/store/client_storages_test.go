package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/models"
)

// newTestClientStorages opens a fresh SQLite database in a temp dir and runs
// the schema migrations, the same path the engine takes at startup.
func newTestClientStorages(t *testing.T) *ClientStorages {
	t.Helper()

	storages, err := NewClientStorages(config.Local{
		Path: filepath.Join(t.TempDir(), "sync.db"),
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { storages.Close() })

	return storages
}

func queuedRequest(opID, entityID string) models.QueuedRequest {
	return models.QueuedRequest{
		OpID:       opID,
		Entity:     "invoice",
		Action:     models.ActionCreate,
		EntityID:   entityID,
		Payload:    []byte(`{"amount":10}`),
		MaxRetries: 3,
	}
}

func TestQueueRepository_EnqueueDequeueAck(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	first, err := s.Queue.Enqueue(ctx, queuedRequest("op-1", "local-a"))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = s.Queue.Enqueue(ctx, queuedRequest("op-2", "local-b"))
	require.NoError(t, err)

	batch, err := s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "op-1", batch[0].OpID, "oldest first")
	assert.Equal(t, "op-2", batch[1].OpID)

	// dequeue does not remove, a crash before ack must not lose requests
	again, err := s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, again, 2)

	require.NoError(t, s.Queue.Ack(ctx, "op-1"))

	batch, err = s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "op-2", batch[0].OpID)

	size, err := s.Queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestClientStorages_QueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sync.db")

	open := func() *ClientStorages {
		t.Helper()
		s, err := NewClientStorages(config.Local{Path: path}, logger.Nop())
		require.NoError(t, err)
		return s
	}

	s := open()
	_, err := s.Queue.Enqueue(ctx, queuedRequest("op-1", "local-a"))
	require.NoError(t, err)
	_, _, err = s.Ledger.Record(ctx, ledgerEntry("op-1", "local-a"))
	require.NoError(t, err)

	// dequeue, then go down before the ack lands
	batch, err := s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, s.Close())

	s = open()
	batch, err = s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1, "unacked request survives a restart")
	assert.Equal(t, "op-1", batch[0].OpID)
	assert.JSONEq(t, `{"amount":10}`, string(batch[0].Payload))

	entry, err := s.Ledger.Get(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, entry.Status)

	require.NoError(t, s.Queue.Ack(ctx, "op-1"))
	require.NoError(t, s.Close())

	s = open()
	defer s.Close()
	size, err := s.Queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size, "acked request stays gone after a restart")
}

func TestQueueRepository_RetryCapExcludesFromReplay(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	req := queuedRequest("op-1", "local-a")
	req.MaxRetries = 2
	_, err := s.Queue.Enqueue(ctx, req)
	require.NoError(t, err)

	require.NoError(t, s.Queue.BumpRetry(ctx, "op-1"))
	batch, err := s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].RetryCount)

	require.NoError(t, s.Queue.BumpRetry(ctx, "op-1"))
	batch, err = s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch, "request past its retry cap is no longer replayable")

	size, err := s.Queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	// still visible for inspection
	all, err := s.Queue.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQueueRepository_MarkFailed(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	_, err := s.Queue.Enqueue(ctx, queuedRequest("op-1", "local-a"))
	require.NoError(t, err)
	require.NoError(t, s.Queue.MarkFailed(ctx, "op-1"))

	batch, err := s.Queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	all, err := s.Queue.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Failed)
}

func TestQueueRepository_UpdatePayload(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	_, err := s.Queue.Enqueue(ctx, queuedRequest("op-1", "local-a"))
	require.NoError(t, err)

	require.NoError(t, s.Queue.UpdatePayload(ctx, "op-1", models.ActionUpdate, []byte(`{"amount":99}`)))

	batch, err := s.Queue.DequeueBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, models.ActionUpdate, batch[0].Action)
	assert.JSONEq(t, `{"amount":99}`, string(batch[0].Payload))

	err = s.Queue.UpdatePayload(ctx, "missing", models.ActionUpdate, nil)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func ledgerEntry(opID, entityID string) models.SyncLogEntry {
	return models.SyncLogEntry{
		OpID:            opID,
		Entity:          "invoice",
		Action:          models.ActionCreate,
		EntityID:        entityID,
		Payload:         []byte(`{"amount":10}`),
		ClientID:        "client-1",
		ClientUpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestLedgerRepository_RecordReplacesInFlight(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	first, replaced, err := s.Ledger.Record(ctx, ledgerEntry("op-1", "inv-1"))
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, models.StatusPending, first.Status)

	// a second edit to the same record while the first is still pending
	// replaces the intent under the original op_id
	second := ledgerEntry("op-2", "inv-1")
	second.Action = models.ActionUpdate
	second.Payload = []byte(`{"amount":20}`)

	survivor, replaced, err := s.Ledger.Record(ctx, second)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "op-1", survivor.OpID, "original op_id survives")
	assert.Equal(t, models.ActionUpdate, survivor.Action)
	assert.Equal(t, models.StatusPending, survivor.Status)

	// no second row was appended
	pending, err := s.Ledger.ListByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.JSONEq(t, `{"amount":20}`, string(pending[0].Payload))

	_, err = s.Ledger.Get(ctx, "op-2")
	assert.ErrorIs(t, err, ErrLedgerEntryNotFound)
}

func TestLedgerRepository_RecordReplacesConflictedEntry(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	_, _, err := s.Ledger.Record(ctx, ledgerEntry("op-1", "inv-1"))
	require.NoError(t, err)

	require.NoError(t, s.Ledger.UpdateStatus(ctx, "op-1", models.StatusConflict, &models.ConflictData{
		ConflictType: models.ConflictTimestamp,
		ServerData:   []byte(`{"amount":50}`),
		Message:      "record changed on the server",
	}))

	// a fresh local edit pulls the entry out of conflict and back to pending
	survivor, replaced, err := s.Ledger.Record(ctx, ledgerEntry("op-2", "inv-1"))
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "op-1", survivor.OpID)
	assert.Equal(t, models.StatusPending, survivor.Status)
	assert.Nil(t, survivor.Conflict)

	got, err := s.Ledger.Get(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.Conflict)
}

func TestLedgerRepository_UpdateStatusAndCounts(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	_, _, err := s.Ledger.Record(ctx, ledgerEntry("op-1", "inv-1"))
	require.NoError(t, err)
	_, _, err = s.Ledger.Record(ctx, ledgerEntry("op-2", "inv-2"))
	require.NoError(t, err)
	_, _, err = s.Ledger.Record(ctx, ledgerEntry("op-3", "inv-3"))
	require.NoError(t, err)

	require.NoError(t, s.Ledger.UpdateStatus(ctx, "op-2", models.StatusConflict, &models.ConflictData{
		ConflictType: models.ConflictVersion,
		ServerData:   []byte(`{"amount":50,"version":7}`),
		Message:      "version mismatch",
	}))
	require.NoError(t, s.Ledger.UpdateStatus(ctx, "op-3", models.StatusFailed, nil))

	got, err := s.Ledger.Get(ctx, "op-2")
	require.NoError(t, err)
	require.NotNil(t, got.Conflict)
	assert.Equal(t, models.ConflictVersion, got.Conflict.ConflictType)
	assert.JSONEq(t, `{"amount":50,"version":7}`, string(got.Conflict.ServerData))
	assert.Equal(t, "version mismatch", got.Conflict.Message)

	counts, err := s.Ledger.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCounts{Pending: 1, Conflict: 1, Failed: 1}, counts)

	err = s.Ledger.UpdateStatus(ctx, "missing", models.StatusSynced, nil)
	assert.ErrorIs(t, err, ErrLedgerEntryNotFound)
}

func TestLedgerRepository_GetInFlight(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	_, found, err := s.Ledger.GetInFlight(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = s.Ledger.Record(ctx, ledgerEntry("op-1", "inv-1"))
	require.NoError(t, err)

	entry, found, err := s.Ledger.GetInFlight(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "op-1", entry.OpID)

	// conflicted entries are still in flight
	require.NoError(t, s.Ledger.UpdateStatus(ctx, "op-1", models.StatusConflict, &models.ConflictData{ConflictType: models.ConflictState}))
	_, found, err = s.Ledger.GetInFlight(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	assert.True(t, found)

	// synced entries are not
	require.NoError(t, s.Ledger.UpdateStatus(ctx, "op-1", models.StatusSynced, nil))
	_, found, err = s.Ledger.GetInFlight(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMirrorRepository_ApplyGetRekey(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.Mirror.Get(ctx, "invoice", "inv-1")
	assert.ErrorIs(t, err, ErrMirrorEntryNotFound)

	require.NoError(t, s.Mirror.Apply(ctx, models.EntityChange{
		Entity: "invoice", ID: "local-a", Action: models.ActionCreate,
		Data: []byte(`{"amount":10}`), UpdatedAt: now,
	}))

	// applying the same change again lands on the same row
	require.NoError(t, s.Mirror.Apply(ctx, models.EntityChange{
		Entity: "invoice", ID: "local-a", Action: models.ActionUpdate,
		Data: []byte(`{"amount":20}`), UpdatedAt: now,
	}))

	entry, err := s.Mirror.Get(ctx, "invoice", "local-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":20}`, string(entry.Data))
	assert.False(t, entry.Deleted)

	require.NoError(t, s.Mirror.Rekey(ctx, "invoice", "local-a", "srv-1"))

	_, err = s.Mirror.Get(ctx, "invoice", "local-a")
	assert.ErrorIs(t, err, ErrMirrorEntryNotFound)

	entry, err = s.Mirror.Get(ctx, "invoice", "srv-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":20}`, string(entry.Data))
}

func TestMirrorRepository_Tombstone(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.Mirror.Apply(ctx, models.EntityChange{
		Entity: "invoice", ID: "inv-1", Action: models.ActionCreate,
		Data: []byte(`{"amount":10}`), UpdatedAt: now,
	}))
	require.NoError(t, s.Mirror.Apply(ctx, models.EntityChange{
		Entity: "invoice", ID: "inv-1", Action: models.ActionDelete,
		UpdatedAt: now, Deleted: true,
	}))

	// the tombstone is kept, not removed
	entry, err := s.Mirror.Get(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	assert.True(t, entry.Deleted)
}

func TestCheckpointRepository(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	cursor, err := s.Checkpoint.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cursor, "fresh database starts from the beginning")

	require.NoError(t, s.Checkpoint.Set(ctx, "42"))

	cursor, err = s.Checkpoint.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor)
}

func TestIDMapRepository(t *testing.T) {
	s := newTestClientStorages(t)
	ctx := context.Background()

	// unmapped ids resolve to themselves
	resolved, found, err := s.IDMap.Resolve(ctx, "invoice", "local-a")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "local-a", resolved)

	require.NoError(t, s.IDMap.Put(ctx, "invoice", "local-a", "srv-1"))

	resolved, found, err = s.IDMap.Resolve(ctx, "invoice", "local-a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "srv-1", resolved)

	// mappings are per entity
	resolved, found, err = s.IDMap.Resolve(ctx, "customer", "local-a")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "local-a", resolved)
}
