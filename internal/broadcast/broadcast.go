// Package broadcast fans committed audit events out to live subscribers: a
// multi-producer/multi-consumer channel where subscribers may lag and
// receive a gap signal rather than ever block a producer. It is hand-rolled
// over chan+sync.Mutex: no third-party dependency offers a generic
// in-process pub/sub primitive better suited than a guarded map of
// per-subscriber channels (see DESIGN.md).
package broadcast

import (
	"sync"

	"github.com/fredsystems/zabbid/internal/domain"
)

// subscriberBuffer bounds how many events a lagging subscriber may queue
// before it is dropped in favor of a gap signal.
const subscriberBuffer = 64

// Event is what a subscriber receives: either a committed AuditEvent, or,
// if the subscriber fell behind, a Gap signal in place of the events it
// missed.
type Event struct {
	Audit *domain.AuditEvent
	Gap   bool
}

// Hub is the multi-producer/multi-consumer broadcaster. The zero value is
// not usable; construct with New.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64]chan Event
	nextID      int64
}

// New builds an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[int64]chan Event)}
}

// Subscription is a live handle a caller reads Events from and must
// eventually Close.
type Subscription struct {
	id     int64
	events chan Event
	hub    *Hub
}

// Events returns the channel to range over.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close unregisters the subscription and releases its channel.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// Subscribe registers a new subscriber and returns its Subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subscribers[id] = ch
	return &Subscription{id: id, events: ch, hub: h}
}

func (h *Hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish fans ev out to every live subscriber. A subscriber whose buffer
// is full is sent a single Gap signal instead of blocking the producer; if
// even the non-blocking gap send cannot land (the subscriber is equally
// far behind on gap signals) the event is simply dropped for that
// subscriber, since its consumer has already lost ordering guarantees.
func (h *Hub) Publish(ev domain.AuditEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- Event{Audit: &ev}:
		default:
			select {
			case ch <- Event{Gap: true}:
			default:
			}
		}
	}
}

// SubscriberCount reports the current number of live subscribers, useful
// for health/metrics endpoints.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
