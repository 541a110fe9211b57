package server

import (
	"log/slog"
	"sync"

	"github.com/evenly-app/evenly/internal/models"
)

// subscriberBuffer is how many undelivered changes a subscriber may fall
// behind before it is dropped. A dropped client reconnects and re-fetches
// full state, so dropping is safe; blocking the publisher is not.
const subscriberBuffer = 64

// Hub fans change notifications out to the clients subscribed to each
// event. Publish runs under one mutex so every subscriber of an event
// observes changes in the order the server committed them.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is one client's registration for one event's changes.
type Subscription struct {
	eventID string
	ch      chan models.Change
}

// Changes is the ordered stream of change notifications.
func (s *Subscription) Changes() <-chan models.Change {
	return s.ch
}

// Subscribe registers a new subscriber for an event's changes.
func (h *Hub) Subscribe(eventID string) *Subscription {
	sub := &Subscription{
		eventID: eventID,
		ch:      make(chan models.Change, subscriberBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[*Subscription]struct{})
	}
	h.subs[eventID][sub] = struct{}{}
	streamSubscribers.Inc()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.eventID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.eventID)
	}
	close(sub.ch)
	streamSubscribers.Dec()
}

// Publish delivers a change to every subscriber of its event. A
// subscriber whose buffer is full is dropped rather than allowed to stall
// everyone else.
func (h *Hub) Publish(ch models.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	changesPublished.WithLabelValues(string(ch.Kind)).Inc()
	for sub := range h.subs[ch.EventID] {
		select {
		case sub.ch <- ch:
		default:
			slog.Warn("dropping slow subscriber", "event_id", ch.EventID)
			delete(h.subs[ch.EventID], sub)
			close(sub.ch)
			streamSubscribers.Dec()
		}
	}
	if len(h.subs[ch.EventID]) == 0 {
		delete(h.subs, ch.EventID)
	}
}
