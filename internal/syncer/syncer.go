// Package syncer keeps a client's event cache consistent with the server.
// It owns the background goroutine that reads the per-event change stream
// and drives the subscribe / disconnect / reconnect lifecycle.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evenly-app/evenly/internal/cache"
	"github.com/evenly-app/evenly/internal/models"
)

// State is the connection state of the manager.
type State int32

const (
	// Disconnected: no subscription. Initial and terminal state.
	Disconnected State = iota
	// Connecting: handshake and full-state fetch in progress.
	Connecting
	// Subscribed: change stream live; deliveries applied in arrival order.
	Subscribed
	// ErrorBackoff: the transport failed; waiting on a reconnect decision.
	ErrorBackoff
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	case ErrorBackoff:
		return "error-backoff"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Server is the transport the manager talks to. *client.Client satisfies
// it; tests substitute doubles with controllable delivery timing.
type Server interface {
	// GetEvent fetches the full current event state.
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)

	// Subscribe opens the change stream for an event. Changes arrive in
	// server commit order on the first channel; when the stream ends,
	// the changes channel closes and exactly one error is sent on the
	// second channel.
	Subscribe(ctx context.Context, eventID string) (<-chan models.Change, <-chan error, error)
}

// Manager maintains the live subscription for the one event the client
// has open, applying incoming changes to the cache in arrival order.
//
// Mutations reach the cache through the Apply hook so the presentation
// layer can marshal them onto its own context; the hook defaults to a
// direct call for headless use.
type Manager struct {
	server Server
	cache  *cache.EventCache

	// Apply marshals a cache mutation onto the foreground context.
	Apply func(fn func())

	// OnDisconnect is invoked exactly once per Subscribed→ErrorBackoff
	// transition, never once per retry, so the presentation layer can
	// prompt the user a single time per disconnect episode.
	OnDisconnect func(eventID string, err error)

	mu      sync.Mutex
	state   State
	epoch   uint64
	eventID string
	cancel  context.CancelFunc
}

// New creates a manager bound to an event cache.
func New(server Server, c *cache.EventCache) *Manager {
	return &Manager{
		server: server,
		cache:  c,
		Apply:  func(fn func()) { fn() },
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EventID returns the event the manager is (or was last) subscribed to.
func (m *Manager) EventID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventID
}

// Subscribe opens a subscription for eventID: open the change stream,
// fetch the full event state, load it into the cache, then start
// consuming deliveries. Any previous subscription is torn down first so
// changes from a previously viewed event can never land in a freshly
// opened one.
//
// On failure the manager enters ErrorBackoff and the error is returned to
// the caller directly; OnDisconnect only fires for failures of an
// established stream.
func (m *Manager) Subscribe(ctx context.Context, eventID string) error {
	m.Unsubscribe()

	m.mu.Lock()
	m.state = Connecting
	m.eventID = eventID
	m.epoch++
	epoch := m.epoch
	streamCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.connect(ctx, streamCtx, eventID, epoch); err != nil {
		cancel()
		m.mu.Lock()
		if m.epoch == epoch {
			m.state = ErrorBackoff
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// connect performs the stream open and full-state fetch shared by
// Subscribe and Reconnect. The stream opens before the fetch: a change
// committed while the fetch is in flight then either appears in the
// fetched state or arrives on the stream, and replaying one that did
// both is idempotent (adds replace by ID, removals are no-ops).
// Fetching first would leave a window where a commit produces neither.
func (m *Manager) connect(ctx, streamCtx context.Context, eventID string, epoch uint64) error {
	changes, errc, err := m.server.Subscribe(streamCtx, eventID)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", eventID, err)
	}

	ev, err := m.server.GetEvent(ctx, eventID)
	if err != nil {
		// The caller cancels streamCtx, which tears the stream down.
		return fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	m.Apply(func() {
		if m.currentEpoch() == epoch {
			m.cache.Load(ev)
		}
	})

	m.mu.Lock()
	if m.epoch != epoch {
		// Unsubscribed while connecting; the stream context is already
		// cancelled, just don't take over the state.
		m.mu.Unlock()
		return nil
	}
	m.state = Subscribed
	m.mu.Unlock()

	go m.receive(eventID, epoch, changes, errc)
	slog.Info("subscribed", "event_id", eventID, "epoch", epoch)
	return nil
}

// receive consumes the change stream until it ends. Every delivery is
// applied to the cache in arrival order; deliveries from a cancelled
// epoch are recognized as stale and discarded.
func (m *Manager) receive(eventID string, epoch uint64, changes <-chan models.Change, errc <-chan error) {
	for ch := range changes {
		if m.currentEpoch() != epoch {
			slog.Debug("discarding stale delivery", "event_id", eventID, "epoch", epoch)
			continue
		}
		change := ch
		m.Apply(func() {
			if m.currentEpoch() != epoch {
				return
			}
			m.cache.ApplyRemoteChange(change)
		})
		if ch.Kind == models.ChangeEventDeleted {
			m.deleted(epoch)
			return
		}
	}

	err := <-errc

	m.mu.Lock()
	if m.epoch != epoch || m.state != Subscribed {
		// Unsubscribe or a newer subscription already took over.
		m.mu.Unlock()
		return
	}
	m.state = ErrorBackoff
	callback := m.OnDisconnect
	m.mu.Unlock()

	slog.Warn("stream lost", "event_id", eventID, "error", err)
	if callback != nil {
		callback(eventID, err)
	}
}

// deleted handles a remote event deletion: the subscription is over and
// there is nothing to reconnect to.
func (m *Manager) deleted(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = Disconnected
	m.mu.Unlock()
	slog.Info("event deleted remotely, subscription closed")
}

// Reconnect re-establishes a lost subscription from ErrorBackoff. The
// stream reopens and the full event state is re-fetched before any
// delivery is applied, so changes missed while disconnected appear
// exactly once.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != ErrorBackoff {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("reconnect from %s", state)
	}
	eventID := m.eventID
	m.state = Connecting
	m.epoch++
	epoch := m.epoch
	if m.cancel != nil {
		m.cancel()
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.connect(ctx, streamCtx, eventID, epoch); err != nil {
		cancel()
		m.mu.Lock()
		if m.epoch == epoch {
			m.state = ErrorBackoff
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// Decline marks the user's decision not to reconnect after a failure.
// The manager goes to the terminal Disconnected state, stops retrying,
// and closes the cache.
func (m *Manager) Decline() {
	m.Unsubscribe()
}

// Unsubscribe tears down the subscription from any state: the stream
// context is cancelled, the epoch is bumped so late-arriving deliveries
// are discarded, and the cache is closed. Effective immediately even if
// the underlying network call has not yet returned.
func (m *Manager) Unsubscribe() {
	m.mu.Lock()
	m.epoch++
	m.state = Disconnected
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.Apply(func() { m.cache.Close() })
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}
