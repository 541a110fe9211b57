package service

import (
	"context"
	"log/slog"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// ExpenseService implements expense-level operations.
type ExpenseService struct {
	store storage.Store
	pub   Publisher
}

// NewExpenseService creates an ExpenseService with the given storage
// backend and change publisher.
func NewExpenseService(store storage.Store, pub Publisher) *ExpenseService {
	return &ExpenseService{store: store, pub: pub}
}

// AddExpense validates and persists a new expense for an event, then
// notifies subscribers. The returned expense carries its server-assigned
// ID. Validation failures come back as models.ValidationErrors.
func (s *ExpenseService) AddExpense(ctx context.Context, eventID string, exp *models.Expense) (*models.Expense, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if exp.Tag.Name == "" {
		exp.Tag = models.DefaultTag()
	}
	if errs := exp.Validate(ev); errs != nil {
		slog.Info("expense rejected", "event_id", eventID, "error", errs)
		return nil, errs
	}

	if err := s.store.CreateExpense(ctx, eventID, exp); err != nil {
		slog.Error("AddExpense failed", "event_id", eventID, "error", err)
		return nil, err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeExpenseAdded,
		Expense: exp,
	})
	slog.Info("expense added", "event_id", eventID, "expense_id", exp.ID,
		"cents", exp.PriceInCents)
	return exp, nil
}

// ListExpenses returns the full current expense set for an event.
func (s *ExpenseService) ListExpenses(ctx context.Context, eventID string) ([]*models.Expense, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, eventID)
}

// TotalExpenses returns the sum of all expense amounts in cents. Clients
// compute the same value locally from the fetched expense set; this path
// serves list screens that have not.
func (s *ExpenseService) TotalExpenses(ctx context.Context, eventID string) (int64, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return s.store.TotalExpenses(ctx, eventID)
}

// EditExpense replaces an expense by its server ID (last write wins) and
// notifies subscribers. Returns storage.ErrNotFound if the expense no
// longer exists; callers should refresh and retry.
func (s *ExpenseService) EditExpense(ctx context.Context, expenseID string, exp *models.Expense) (*models.Expense, error) {
	exp.ID = expenseID
	if exp.Tag.Name == "" {
		exp.Tag = models.DefaultTag()
	}
	// Field-level validation only: membership is checked on creation, and
	// a concurrent participant removal wins over this edit anyway.
	if errs := exp.Validate(nil); errs != nil {
		return nil, errs
	}

	eventID, err := s.store.UpdateExpense(ctx, exp)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeExpenseEdited,
		Expense: exp,
	})
	slog.Info("expense edited", "event_id", eventID, "expense_id", expenseID)
	return exp, nil
}

// DeleteExpense removes an expense by its server ID and notifies
// subscribers.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	eventID, err := s.store.DeleteExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	s.pub.Publish(models.Change{
		EventID:   eventID,
		Kind:      models.ChangeExpenseRemoved,
		ExpenseID: expenseID,
	})
	slog.Info("expense deleted", "event_id", eventID, "expense_id", expenseID)
	return nil
}
