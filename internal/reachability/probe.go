package reachability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/logger"
)

// ProbeMonitor derives reachability by polling the server's health endpoint
// on a fixed interval.
type ProbeMonitor struct {
	transport adapter.SyncTransport
	interval  time.Duration
	logger    *logger.Logger

	online atomic.Bool
	bcast  broadcaster

	started  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func NewProbeMonitor(transport adapter.SyncTransport, interval time.Duration, logger *logger.Logger) *ProbeMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &ProbeMonitor{
		transport: transport,
		interval:  interval,
		logger:    logger,
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (m *ProbeMonitor) Online() bool {
	return m.online.Load()
}

func (m *ProbeMonitor) Subscribe() <-chan Event {
	return m.bcast.subscribe()
}

// Start probes once immediately so the first state is known before the first
// tick, then keeps polling until ctx is cancelled or Stop is called.
func (m *ProbeMonitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(m.done)

		m.probe(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopped:
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

func (m *ProbeMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		if m.started.Load() {
			<-m.done
		}
		m.bcast.close()
	})
}

func (m *ProbeMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.transport.Ping(probeCtx)
	nowOnline := err == nil

	if m.online.Swap(nowOnline) == nowOnline {
		return
	}

	m.logger.Info().
		Str("func", "ProbeMonitor.probe").
		Bool("online", nowOnline).
		Msg("reachability changed")

	m.bcast.notify(Event{Online: nowOnline, At: time.Now()})
}
