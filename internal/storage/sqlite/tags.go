package sqlite

import (
	"context"
	"fmt"

	"github.com/evenly-app/evenly/internal/models"
)

// UpsertTag adds or recolors a tag on an event.
func (s *SQLiteStore) UpsertTag(ctx context.Context, eventID string, tag models.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchEvent(ctx, tx, eventID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tags (event_id, name, color) VALUES (?, ?, ?)
		 ON CONFLICT (event_id, name) DO UPDATE SET color = excluded.color`,
		eventID, tag.Name, tag.ColorCode,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}

	// Keep the denormalized copy on expenses in line.
	_, err = tx.ExecContext(ctx,
		"UPDATE expenses SET tag_color = ? WHERE event_id = ? AND tag_name = ?",
		tag.ColorCode, eventID, tag.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to recolor tagged expenses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveTag deletes a tag; expenses carrying it fall back to the default
// tag. Removing a reserved tag is a validation failure, not a server
// fault.
func (s *SQLiteStore) RemoveTag(ctx context.Context, eventID, name string) error {
	if name == models.DefaultTagName || name == models.TransferTagName {
		return models.ValidationErrors{"name": fmt.Sprintf("tag %q is reserved", name)}
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
		"DELETE FROM tags WHERE event_id = ? AND name = ?", eventID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	def := models.DefaultTag()
	_, err = tx.ExecContext(ctx,
		"UPDATE expenses SET tag_name = ?, tag_color = ? WHERE event_id = ? AND tag_name = ?",
		def.Name, def.ColorCode, eventID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to retag expenses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
