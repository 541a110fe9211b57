// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/evenly-app/evenly/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store defines the interface for event and expense storage. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, ...)
// without changing the service layer. Reads observe a causal
// read-after-write view per event.
type Store interface {
	// CreateEvent persists a new event. The event's invite code must be
	// populated; on a code collision the store returns ErrCodeTaken so
	// the caller can regenerate and retry.
	CreateEvent(ctx context.Context, ev *models.Event) error

	// GetEvent retrieves an event with its participants, expenses and
	// tags. Returns ErrNotFound if the invite code is unknown.
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)

	// SetEventTitle renames an event and touches its last activity.
	SetEventTitle(ctx context.Context, eventID, title string) error

	// DeleteEvent destroys an event and everything it owns.
	DeleteEvent(ctx context.Context, eventID string) error

	// AddParticipant inserts a participant, populating its ID, and
	// touches the event's last activity.
	AddParticipant(ctx context.Context, eventID string, p *models.Participant) error

	// RemoveParticipant removes a participant and cascades: expenses they
	// paid for are deleted and their split memberships are removed.
	RemoveParticipant(ctx context.Context, eventID, participantID string) error

	// CreateExpense persists a new expense for an event, populating its
	// server ID, and touches the event's last activity.
	CreateExpense(ctx context.Context, eventID string, exp *models.Expense) error

	// ListExpenses returns the full current expense set for an event.
	ListExpenses(ctx context.Context, eventID string) ([]*models.Expense, error)

	// TotalExpenses returns the sum of all expense amounts in cents.
	TotalExpenses(ctx context.Context, eventID string) (int64, error)

	// UpdateExpense replaces an expense by its server ID and returns the
	// ID of the owning event. Returns ErrNotFound if the expense is gone.
	UpdateExpense(ctx context.Context, exp *models.Expense) (eventID string, err error)

	// DeleteExpense removes an expense by its server ID and returns the
	// ID of the owning event.
	DeleteExpense(ctx context.Context, expenseID string) (eventID string, err error)

	// UpsertTag adds or recolors a tag on an event.
	UpsertTag(ctx context.Context, eventID string, tag models.Tag) error

	// RemoveTag deletes a tag from an event; expenses carrying it fall
	// back to the default tag. Reserved tags cannot be removed.
	RemoveTag(ctx context.Context, eventID, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrCodeTaken is returned by CreateEvent when the generated invite code
// is already in use by a live event.
var ErrCodeTaken = errors.New("storage: invite code already in use")
