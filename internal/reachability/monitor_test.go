package reachability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillware/syncengine/internal/adapter"
	"github.com/tillware/syncengine/internal/logger"
)

func TestStaticMonitor_SetNotifiesOnTransition(t *testing.T) {
	m := NewStaticMonitor(false)
	defer m.Stop()

	events := m.Subscribe()

	m.Set(true)
	require.True(t, m.Online())

	select {
	case ev := <-events:
		assert.True(t, ev.Online)
	case <-time.After(time.Second):
		t.Fatal("expected an online event")
	}

	// same state again must not notify
	m.Set(true)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStaticMonitor_SlowSubscriberKeepsLatest(t *testing.T) {
	m := NewStaticMonitor(false)
	defer m.Stop()

	events := m.Subscribe()

	m.Set(true)
	m.Set(false)
	m.Set(true)

	// only the newest state survives in the buffer
	select {
	case ev := <-events:
		assert.True(t, ev.Online)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestProbeMonitor_DetectsTransitions(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	transport := adapter.NewHTTPSyncTransport(adapter.HTTPClientConfig{BaseURL: srv.URL})
	m := NewProbeMonitor(transport, 20*time.Millisecond, logger.Nop())
	events := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	defer m.Stop()

	require.False(t, m.Online())

	healthy.Store(true)
	select {
	case ev := <-events:
		assert.True(t, ev.Online)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an online event")
	}
	assert.True(t, m.Online())

	healthy.Store(false)
	select {
	case ev := <-events:
		assert.False(t, ev.Online)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an offline event")
	}
	assert.False(t, m.Online())
}

func TestProbeMonitor_StopWithoutStart(t *testing.T) {
	transport := adapter.NewHTTPSyncTransport(adapter.HTTPClientConfig{BaseURL: "http://127.0.0.1:1"})
	m := NewProbeMonitor(transport, time.Second, logger.Nop())

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
}
