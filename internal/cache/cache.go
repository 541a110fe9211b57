// Package cache holds the single in-memory copy of the event a client
// currently has open. It is the only mutable state shared between the
// sync goroutine and the presentation context, so every access goes
// through its mutex and reads hand out deep snapshots.
package cache

import (
	"log/slog"
	"sync"

	"github.com/evenly-app/evenly/internal/models"
)

// EventCache caches exactly one event, or none. Switching events is a
// full Close followed by Load; there is no multi-event cache.
type EventCache struct {
	mu    sync.RWMutex
	event *models.Event
}

// New returns an empty cache.
func New() *EventCache {
	return &EventCache{}
}

// Load replaces the cached event wholesale. Used on initial join, event
// switch, and full-state re-fetch after reconnect.
func (c *EventCache) Load(ev *models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.event = ev.Clone()
}

// Close clears the cache. Subsequent remote changes for the unloaded
// event are discarded.
func (c *EventCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.event = nil
}

// EventID returns the cached event's invite code, or "" when empty.
func (c *EventCache) EventID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.event == nil {
		return ""
	}
	return c.event.ID
}

// CurrentEvent returns a deep snapshot of the cached event, or nil when
// the cache is empty. The snapshot is safe to read (and to feed to the
// ledger and settle packages) without further locking.
func (c *EventCache) CurrentEvent() *models.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.event.Clone()
}

// ApplyRemoteChange applies one incoming mutation to the cached event and
// reports whether it was applied. Changes for an event that is not loaded
// are discarded: remote deliveries race with local eviction, so this is
// ordinary operation, not an error. Removals of entities already gone
// locally are no-ops for the same reason.
func (c *EventCache) ApplyRemoteChange(ch models.Change) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.event == nil || c.event.ID != ch.EventID {
		slog.Debug("discarding change for unloaded event",
			"event_id", ch.EventID, "kind", ch.Kind)
		return false
	}

	switch ch.Kind {
	case models.ChangeParticipantAdded:
		if ch.Participant == nil {
			return false
		}
		p := *ch.Participant
		c.event.AddParticipant(&p)
	case models.ChangeParticipantRemoved:
		c.event.RemoveParticipant(ch.ParticipantID)
	case models.ChangeExpenseAdded, models.ChangeExpenseEdited:
		if ch.Expense == nil {
			return false
		}
		c.event.AddExpense(ch.Expense.Clone())
	case models.ChangeExpenseRemoved:
		c.event.RemoveExpense(ch.ExpenseID)
	case models.ChangeTitleEdited:
		c.event.SetTitle(ch.Title)
	case models.ChangeTagUpserted:
		if ch.Tag == nil {
			return false
		}
		c.event.UpsertTag(*ch.Tag)
	case models.ChangeTagRemoved:
		c.event.RemoveTag(ch.TagName)
	case models.ChangeEventDeleted:
		c.event = nil
	default:
		slog.Warn("unknown change kind", "kind", ch.Kind)
		return false
	}
	return true
}
