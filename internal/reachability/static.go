package reachability

import (
	"context"
	"sync/atomic"
	"time"
)

// StaticMonitor holds a manually controlled reachability state. Hosts with
// their own connectivity signal flip it via Set; tests use it to script
// offline and online phases.
type StaticMonitor struct {
	online atomic.Bool
	bcast  broadcaster
}

func NewStaticMonitor(online bool) *StaticMonitor {
	m := &StaticMonitor{}
	m.online.Store(online)
	return m
}

func (m *StaticMonitor) Online() bool {
	return m.online.Load()
}

func (m *StaticMonitor) Subscribe() <-chan Event {
	return m.bcast.subscribe()
}

// Set switches the state and notifies subscribers if it changed.
func (m *StaticMonitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	m.bcast.notify(Event{Online: online, At: time.Now()})
}

func (m *StaticMonitor) Start(_ context.Context) {}

func (m *StaticMonitor) Stop() {
	m.bcast.close()
}
