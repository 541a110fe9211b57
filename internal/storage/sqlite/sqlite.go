// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateEvent persists a new event with its seeded tag set.
func (s *SQLiteStore) CreateEvent(ctx context.Context, ev *models.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (id, title, creation_date, last_activity) VALUES (?, ?, ?, ?)",
		ev.ID, ev.Title, ev.CreationDate.Unix(), ev.LastActivity.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCodeTaken
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}

	for _, tag := range ev.Tags {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO tags (event_id, name, color) VALUES (?, ?, ?)",
			ev.ID, tag.Name, tag.ColorCode,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation matches the driver's error text for a primary-key
// clash; modernc.org/sqlite exposes no typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetEvent retrieves an event with all of its participants, expenses and
// tags.
func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	ev := &models.Event{}
	var created, activity int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, creation_date, last_activity FROM events WHERE id = ?",
		eventID,
	).Scan(&ev.ID, &ev.Title, &created, &activity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	ev.CreationDate = time.Unix(created, 0)
	ev.LastActivity = time.Unix(activity, 0)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, iban, bic FROM participants WHERE event_id = ? ORDER BY name, id",
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.IBAN, &p.BIC); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ev.Participants = append(ev.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	ev.Expenses, err = s.ListExpenses(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tagRows, err := s.db.QueryContext(ctx,
		"SELECT name, color FROM tags WHERE event_id = ? ORDER BY name",
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag models.Tag
		if err := tagRows.Scan(&tag.Name, &tag.ColorCode); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		ev.Tags = append(ev.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return ev, nil
}

// SetEventTitle renames an event and touches its last activity.
func (s *SQLiteStore) SetEventTitle(ctx context.Context, eventID, title string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE events SET title = ?, last_activity = ? WHERE id = ?",
		title, time.Now().Unix(), eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return requireRow(res)
}

// DeleteEvent destroys an event; participants, expenses, splits and tags
// go with it via foreign-key cascades.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRow(res)
}

// touchEvent bumps last_activity inside an open transaction.
func touchEvent(ctx context.Context, tx *sql.Tx, eventID string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE events SET last_activity = ? WHERE id = ?",
		time.Now().Unix(), eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch event: %w", err)
	}
	return requireRow(res)
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
