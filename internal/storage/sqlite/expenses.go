package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// CreateExpense persists a new expense, generating its server ID, and
// touches the event's last activity.
func (s *SQLiteStore) CreateExpense(ctx context.Context, eventID string, exp *models.Expense) error {
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchEvent(ctx, tx, eventID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, event_id, idx, name, price_cents, date, currency, owed_to, tag_name, tag_color)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, eventID, exp.Index, exp.Name, exp.PriceInCents, exp.Date.Unix(),
		exp.Currency, exp.OwedTo, exp.Tag.Name, exp.Tag.ColorCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertSplits(ctx, tx, exp); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, exp *models.Expense) error {
	for _, pid := range exp.SplitAmong {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, participant_id) VALUES (?, ?)",
			exp.ID, pid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

// ListExpenses returns the full current expense set for an event.
func (s *SQLiteStore) ListExpenses(ctx context.Context, eventID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idx, name, price_cents, date, currency, owed_to, tag_name, tag_color
		   FROM expenses WHERE event_id = ? ORDER BY date, idx`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		exp := &models.Expense{}
		var date int64
		err := rows.Scan(&exp.ID, &exp.Index, &exp.Name, &exp.PriceInCents, &date,
			&exp.Currency, &exp.OwedTo, &exp.Tag.Name, &exp.Tag.ColorCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.Date = time.Unix(date, 0)
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, exp := range expenses {
		splitRows, err := s.db.QueryContext(ctx,
			"SELECT participant_id FROM expense_splits WHERE expense_id = ? ORDER BY participant_id",
			exp.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get splits: %w", err)
		}
		for splitRows.Next() {
			var pid string
			if err := splitRows.Scan(&pid); err != nil {
				splitRows.Close()
				return nil, fmt.Errorf("failed to scan split: %w", err)
			}
			exp.SplitAmong = append(exp.SplitAmong, pid)
		}
		splitRows.Close()
		if err := splitRows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate splits: %w", err)
		}
	}

	return expenses, nil
}

// TotalExpenses returns the sum of all expense amounts in cents.
func (s *SQLiteStore) TotalExpenses(ctx context.Context, eventID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(price_cents), 0) FROM expenses WHERE event_id = ?",
		eventID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

// eventOfExpense resolves the owning event of an expense.
func (s *SQLiteStore) eventOfExpense(ctx context.Context, expenseID string) (string, error) {
	var eventID string
	err := s.db.QueryRowContext(ctx,
		"SELECT event_id FROM expenses WHERE id = ?", expenseID,
	).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve expense: %w", err)
	}
	return eventID, nil
}

// UpdateExpense replaces an expense by its server ID (last write wins) and
// returns the owning event's ID.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, exp *models.Expense) (string, error) {
	eventID, err := s.eventOfExpense(ctx, exp.ID)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET idx = ?, name = ?, price_cents = ?, date = ?, currency = ?,
		        owed_to = ?, tag_name = ?, tag_color = ?
		  WHERE id = ?`,
		exp.Index, exp.Name, exp.PriceInCents, exp.Date.Unix(), exp.Currency,
		exp.OwedTo, exp.Tag.Name, exp.Tag.ColorCode, exp.ID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update expense: %w", err)
	}
	if err := requireRow(res); err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", exp.ID)
	if err != nil {
		return "", fmt.Errorf("failed to clear splits: %w", err)
	}
	if err := insertSplits(ctx, tx, exp); err != nil {
		return "", err
	}

	if err := touchEvent(ctx, tx, eventID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return eventID, nil
}

// DeleteExpense removes an expense by its server ID and returns the
// owning event's ID.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) (string, error) {
	eventID, err := s.eventOfExpense(ctx, expenseID)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return "", fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := requireRow(res); err != nil {
		return "", err
	}

	if err := touchEvent(ctx, tx, eventID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return eventID, nil
}
