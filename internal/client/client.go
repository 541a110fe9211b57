// Package client is the typed HTTP client for the Evenly server API.
// It is consumed by the sync manager (full-state re-fetch, change stream)
// and by the application layer for every user-initiated mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evenly-app/evenly/internal/models"
)

// ErrNotFound is returned when the server no longer has the requested
// entity. Callers should refresh their view and retry; this is a
// recoverable failure, never fatal.
var ErrNotFound = errors.New("client: not found")

// Client talks to one Evenly server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// do performs one JSON round-trip. A nil body sends no payload; a nil out
// discards the response body. 404 maps to ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: server returned %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: server returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateEvent creates a new event and returns it, invite code assigned.
func (c *Client) CreateEvent(ctx context.Context, title string) (*models.Event, error) {
	req := struct {
		Title string `json:"title"`
	}{Title: title}
	var ev models.Event
	if err := c.do(ctx, http.MethodPost, "/api/events", req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvent fetches the full current state of an event by invite code.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var ev models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events/"+eventID, nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// EditTitle renames an event and returns the updated event.
func (c *Client) EditTitle(ctx context.Context, eventID, title string) (*models.Event, error) {
	req := struct {
		Title string `json:"title"`
	}{Title: title}
	var ev models.Event
	if err := c.do(ctx, http.MethodPut, "/api/events/"+eventID+"/title", req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DeleteEvent destroys an event and everything it owns.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+eventID, nil, nil)
}

// AddParticipant adds a participant to an event; the returned participant
// has its server-assigned ID populated.
func (c *Client) AddParticipant(ctx context.Context, eventID string, p *models.Participant) (*models.Participant, error) {
	var created models.Participant
	if err := c.do(ctx, http.MethodPost, "/api/events/"+eventID+"/participants", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveParticipant removes a participant from an event. The server
// cascades the removal through expense splits and payer references.
func (c *Client) RemoveParticipant(ctx context.Context, eventID, participantID string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+eventID+"/participants/"+participantID, nil, nil)
}

// UpsertTag adds or recolors a tag on an event.
func (c *Client) UpsertTag(ctx context.Context, eventID string, tag models.Tag) error {
	return c.do(ctx, http.MethodPost, "/api/events/"+eventID+"/tags", tag, nil)
}

// RemoveTag deletes a tag from an event; expenses carrying it fall back
// to the default tag. Reserved tags are rejected by the server.
func (c *Client) RemoveTag(ctx context.Context, eventID, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+eventID+"/tags/"+url.PathEscape(name), nil, nil)
}

// AddExpense adds an expense to an event; the echo has server-assigned
// fields populated.
func (c *Client) AddExpense(ctx context.Context, eventID string, exp *models.Expense) (*models.Expense, error) {
	var created models.Expense
	if err := c.do(ctx, http.MethodPost, "/api/expenses/"+eventID+"/expenses", exp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Expenses fetches the full current expense set for an event.
func (c *Client) Expenses(ctx context.Context, eventID string) ([]*models.Expense, error) {
	var out []*models.Expense
	if err := c.do(ctx, http.MethodGet, "/api/expenses/"+eventID+"/expenses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalExpenses fetches the server-computed spending total in cents. The
// ledger package computes the same value locally; this is an optimization
// path for list screens that have not fetched the expense set.
func (c *Client) TotalExpenses(ctx context.Context, eventID string) (int64, error) {
	var total int64
	if err := c.do(ctx, http.MethodGet, "/api/expenses/"+eventID+"/total-expenses", nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// EditExpense replaces an expense by its server ID. Returns ErrNotFound
// if the expense no longer exists.
func (c *Client) EditExpense(ctx context.Context, expenseID string, exp *models.Expense) (*models.Expense, error) {
	var updated models.Expense
	if err := c.do(ctx, http.MethodPut, "/api/expenses/"+expenseID, exp, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteExpense removes an expense by its server ID.
func (c *Client) DeleteExpense(ctx context.Context, expenseID string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+expenseID, nil, nil)
}
