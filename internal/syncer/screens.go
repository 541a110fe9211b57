package syncer

import "context"

// The presentation layer reports screen switches here so the manager can
// decide which event, if any, should be subscribed. Keeping this decision
// in one place guarantees the old subscription is fully torn down before
// a new one begins.

// SwitchToEvent is called when the UI opens an event screen. Re-entering
// the screen of the already-subscribed event is a no-op; anything else is
// a full switch: unsubscribe, re-fetch, resubscribe.
func (m *Manager) SwitchToEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	already := m.state == Subscribed && m.eventID == eventID
	m.mu.Unlock()
	if already {
		return nil
	}
	return m.Subscribe(ctx, eventID)
}

// SwitchToMainMenu is called when the UI leaves the event screens for the
// main menu: the open event is closed outright.
func (m *Manager) SwitchToMainMenu() {
	m.Unsubscribe()
}
