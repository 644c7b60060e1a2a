package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/reachability"
)

type scheduler struct {
	cfg     config.Engine
	pusher  PushReconciler
	puller  PullReconciler
	monitor reachability.Monitor
	logger  *logger.Logger

	processing atomic.Bool

	subMu       sync.RWMutex
	subscribers []func(processing bool)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(
	cfg config.Engine,
	pusher PushReconciler,
	puller PullReconciler,
	monitor reachability.Monitor,
	logger *logger.Logger,
) Scheduler {
	return &scheduler{
		cfg:     cfg,
		pusher:  pusher,
		puller:  puller,
		monitor: monitor,
		logger:  logger,
	}
}

// ProcessQueue runs one push drain. The processing flag collapses concurrent
// callers into a single drain so a submit-triggered kick cannot race the
// timer loop over the same queue rows.
func (s *scheduler) ProcessQueue(ctx context.Context) error {
	if !s.processing.CompareAndSwap(false, true) {
		return nil
	}
	defer s.processing.Store(false)

	if !s.monitor.Online() {
		return ErrOffline
	}

	s.notify(true)
	defer s.notify(false)

	return s.pusher.Drain(ctx)
}

// Subscribe registers a progress callback. Callbacks run synchronously on the
// draining goroutine, so they should hand off to the UI rather than block.
func (s *scheduler) Subscribe(fn func(processing bool)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *scheduler) notify(processing bool) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subscribers {
		fn(processing)
	}
}

func (s *scheduler) SyncNow(ctx context.Context) error {
	if err := s.ProcessQueue(ctx); err != nil {
		return err
	}
	return s.puller.Pull(ctx)
}

// StartAutoSync launches the background loop: a full cycle every interval,
// an immediate cycle whenever the monitor reports the server back online,
// and capped exponential backoff after batch-level failures. Any previously
// running loop is stopped before the new one begins.
func (s *scheduler) StartAutoSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultPullInterval
	}

	s.StopAutoSync()

	s.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	events := s.monitor.Subscribe()

	go func() {
		defer s.wg.Done()

		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		rearm := func() {
			delay := interval
			if failures > 0 {
				delay = backoffDelay(s.cfg.BackoffBase, s.cfg.BackoffCeiling, failures)
			}
			timer.Reset(delay)
		}

		cycle := func() {
			err := s.SyncNow(loopCtx)
			switch {
			case err == nil:
				failures = 0
			case errors.Is(err, ErrOffline):
				// the reachability event rearms us, no backoff needed
				failures = 0
			default:
				failures++
				s.logger.Warn().
					Str("func", "scheduler.StartAutoSync").
					Int("failures", failures).
					Err(err).
					Msg("sync cycle failed")
			}
		}

		for {
			select {
			case <-loopCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Online {
					cycle()
					rearm()
				}
			case <-timer.C:
				if s.monitor.Online() {
					cycle()
				}
				rearm()
			}
		}
	}()
}

// StopAutoSync cancels the loop's context and blocks until the goroutine has
// fully exited. Safe to call when the loop is not running.
func (s *scheduler) StopAutoSync() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// backoffDelay grows the base delay exponentially with the failure count and
// clamps it at the ceiling.
func backoffDelay(base, ceiling time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = config.DefaultBackoffBase
	}
	if ceiling <= 0 {
		ceiling = config.DefaultBackoffCeiling
	}

	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
