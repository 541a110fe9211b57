package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// AddParticipant inserts a participant, generating its ID if unset, and
// touches the event's last activity.
func (s *SQLiteStore) AddParticipant(ctx context.Context, eventID string, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
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
		"INSERT INTO participants (id, event_id, name, email, iban, bic) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, eventID, p.Name, p.Email, p.IBAN, p.BIC,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveParticipant removes a participant and cascades: expenses the
// participant paid for are deleted, and their membership in other
// expenses' splits is removed.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, eventID, participantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM participants WHERE id = ? AND event_id = ?",
		participantID, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	// Expenses paid by the removed participant disappear; split rows
	// follow via the foreign-key cascade.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE event_id = ? AND owed_to = ?",
		eventID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete paid expenses: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM expense_splits WHERE participant_id = ?
		   AND expense_id IN (SELECT id FROM expenses WHERE event_id = ?)`,
		participantID, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to strip participant from splits: %w", err)
	}

	if err := touchEvent(ctx, tx, eventID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
