// Package reachability tracks whether the sync server can currently be
// reached and notifies subscribers about transitions.
//
// The engine never probes the network itself: it asks a [Monitor]. The
// package ships two implementations. [ProbeMonitor] polls the server's health
// endpoint on an interval, [StaticMonitor] holds a manually switched state
// and is used in tests and by hosts that have their own connectivity signal
// (mobile shells, OS network change callbacks).
package reachability

import (
	"context"
	"sync"
	"time"
)

//go:generate mockgen -source=monitor.go -destination=../mock/reachability_mock.go -package=mock

// Event describes one reachability transition.
type Event struct {
	Online bool
	At     time.Time
}

// Monitor reports and broadcasts server reachability.
type Monitor interface {
	// Online reports the last known reachability state.
	Online() bool

	// Subscribe returns a channel that receives an Event on every
	// transition. The channel is buffered; a slow consumer loses
	// intermediate transitions but always observes the latest one.
	Subscribe() <-chan Event

	// Start begins watching. It returns immediately; watching stops when
	// ctx is cancelled or Stop is called.
	Start(ctx context.Context)

	// Stop halts watching and closes subscriber channels.
	Stop()
}

// broadcaster is the subscriber bookkeeping shared by monitor
// implementations.
type broadcaster struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func (b *broadcaster) subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 1)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// notify delivers the event without blocking: if a subscriber has not drained
// the previous event, it is replaced so the channel always holds the newest
// state.
func (b *broadcaster) notify(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
