package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/reachability"
)

// stub reconcilers avoid mockgen here: the scheduler only needs to know
// whether Drain/Pull ran and what they returned.
type stubPusher struct {
	calls atomic.Int32
	err   error
}

func (s *stubPusher) Drain(_ context.Context) error {
	s.calls.Add(1)
	return s.err
}

type stubPuller struct {
	calls atomic.Int32
	err   error
}

func (s *stubPuller) Pull(_ context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestScheduler_ProcessQueue_Offline(t *testing.T) {
	monitor := reachability.NewStaticMonitor(false)
	defer monitor.Stop()

	pusher := &stubPusher{}
	s := NewScheduler(testEngineConfig(), pusher, &stubPuller{}, monitor, logger.Nop())

	err := s.ProcessQueue(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, int32(0), pusher.calls.Load())
}

func TestScheduler_ProcessQueue_DrainsWhenOnline(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	pusher := &stubPusher{}
	s := NewScheduler(testEngineConfig(), pusher, &stubPuller{}, monitor, logger.Nop())

	require.NoError(t, s.ProcessQueue(context.Background()))
	assert.Equal(t, int32(1), pusher.calls.Load())
}

func TestScheduler_SyncNow_PushesThenPulls(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	pusher := &stubPusher{}
	puller := &stubPuller{}
	s := NewScheduler(testEngineConfig(), pusher, puller, monitor, logger.Nop())

	require.NoError(t, s.SyncNow(context.Background()))
	assert.Equal(t, int32(1), pusher.calls.Load())
	assert.Equal(t, int32(1), puller.calls.Load())
}

func TestScheduler_SyncNow_PushFailureSkipsPull(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	pusher := &stubPusher{err: errors.New("boom")}
	puller := &stubPuller{}
	s := NewScheduler(testEngineConfig(), pusher, puller, monitor, logger.Nop())

	require.Error(t, s.SyncNow(context.Background()))
	assert.Equal(t, int32(0), puller.calls.Load())
}

func TestScheduler_AutoSync_RunsOnOnlineTransition(t *testing.T) {
	monitor := reachability.NewStaticMonitor(false)
	defer monitor.Stop()

	pusher := &stubPusher{}
	puller := &stubPuller{}
	s := NewScheduler(testEngineConfig(), pusher, puller, monitor, logger.Nop())

	// interval far away, only the reachability event can trigger a cycle
	s.StartAutoSync(context.Background(), time.Hour)
	defer s.StopAutoSync()

	monitor.Set(true)

	require.Eventually(t, func() bool {
		return pusher.calls.Load() >= 1 && puller.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_AutoSync_TicksWhileOnline(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	pusher := &stubPusher{}
	puller := &stubPuller{}
	s := NewScheduler(testEngineConfig(), pusher, puller, monitor, logger.Nop())

	s.StartAutoSync(context.Background(), 20*time.Millisecond)
	defer s.StopAutoSync()

	require.Eventually(t, func() bool {
		return pusher.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Subscribe_ReportsProgress(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	s := NewScheduler(testEngineConfig(), &stubPusher{}, &stubPuller{}, monitor, logger.Nop())

	var events []bool
	s.Subscribe(func(processing bool) {
		events = append(events, processing)
	})

	require.NoError(t, s.ProcessQueue(context.Background()))
	assert.Equal(t, []bool{true, false}, events)
}

func TestScheduler_Subscribe_NotNotifiedOffline(t *testing.T) {
	monitor := reachability.NewStaticMonitor(false)
	defer monitor.Stop()

	s := NewScheduler(testEngineConfig(), &stubPusher{}, &stubPuller{}, monitor, logger.Nop())

	notified := false
	s.Subscribe(func(bool) { notified = true })

	require.ErrorIs(t, s.ProcessQueue(context.Background()), ErrOffline)
	assert.False(t, notified)
}

func TestScheduler_StopAutoSync_Idempotent(t *testing.T) {
	monitor := reachability.NewStaticMonitor(true)
	defer monitor.Stop()

	s := NewScheduler(testEngineConfig(), &stubPusher{}, &stubPuller{}, monitor, logger.Nop())

	s.StartAutoSync(context.Background(), time.Hour)
	s.StopAutoSync()
	s.StopAutoSync() // no panic, no deadlock
}
