//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package stream

import (
	"sync"
	"sync/atomic"

	"github.com/cloudmanic/tvstream/internal/protocol"
)

// Event is whatever the hub fans out: any decoded protocol event plus the
// originating subscription, so consumers can filter by symbol/interval.
type Event struct {
	Sub protocol.Subscription
	protocol.DecodedEvent
}

// subscriber is one registered consumer's queue and drop counter.
type subscriber struct {
	ch      chan Event
	dropped int64
}

// Hub is a broadcast registry owning a set of per-subscriber queues.
// Publishing never blocks: a full subscriber queue drops the event for
// that subscriber only and increments its drop counter. The hub takes its
// lock only to snapshot the subscriber set, never across the sends
// themselves, so one slow or absent consumer cannot stall another.
type Hub struct {
	mu          sync.RWMutex
	subs        map[*subscriber]struct{}
	queueCap    int
	closed      bool
	closeSignal chan struct{}
}

// NewHub creates a Hub whose subscriber queues have the given capacity.
// A capacity of 0 means unbounded (an unbuffered Go channel would block,
// so unbounded is implemented as a very large buffer rather than literal
// infinite capacity).
func NewHub(queueCap int) *Hub {
	return &Hub{
		subs:        make(map[*subscriber]struct{}),
		queueCap:    queueCap,
		closeSignal: make(chan struct{}),
	}
}

// Subscribe registers a new consumer and returns its event channel along
// with an unsubscribe function. The returned channel is closed when the
// hub is closed or Unsubscribe is called.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	capacity := h.queueCap
	if capacity <= 0 {
		capacity = 4096
	}

	sub := &subscriber{ch: make(chan Event, capacity)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[sub]; ok {
				delete(h.subs, sub)
				close(sub.ch)
			}
			h.mu.Unlock()
		})
	}

	return sub.ch, unsubscribe
}

// Publish fans event out to every current subscriber without blocking.
// Subscribers whose queue is full drop the event silently (their drop
// counter increments); other subscribers are unaffected.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	snapshot := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		select {
		case s.ch <- event:
		default:
			atomic.AddInt64(&s.dropped, 1)
		}
	}
}

// Close closes the hub and every registered subscriber channel. Close is
// idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
	}
	h.subs = make(map[*subscriber]struct{})
	close(h.closeSignal)
}

// Metrics summarizes the hub's current subscriber count and total dropped
// events, for observability.
type Metrics struct {
	Subscribers int
	Dropped     int64
}

// Metrics returns a snapshot of the hub's current metrics.
func (h *Hub) Metrics() Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var dropped int64
	for s := range h.subs {
		dropped += atomic.LoadInt64(&s.dropped)
	}
	return Metrics{Subscribers: len(h.subs), Dropped: dropped}
}
