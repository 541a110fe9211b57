package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evenly-app/evenly/internal/cache"
	"github.com/evenly-app/evenly/internal/client"
	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/service"
	"github.com/evenly-app/evenly/internal/storage/sqlite"
	"github.com/evenly-app/evenly/internal/syncer"
)

// newTestServer stands up the full stack (SQLite store, services, hub,
// router) on an httptest server and returns a client pointed at it.
func newTestServer(t *testing.T) *client.Client {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "evenly-server-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := NewHub()
	events := service.NewEventService(store, hub)
	expenses := service.NewExpenseService(store, hub)
	ts := httptest.NewServer(New(events, expenses, hub).Router())
	t.Cleanup(ts.Close)

	return client.New(ts.URL)
}

func TestEventLifecycle(t *testing.T) {
	cli := newTestServer(t)
	ctx := context.Background()

	ev, err := cli.CreateEvent(ctx, "Ski Trip")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if !models.ValidInviteCode(ev.ID) {
		t.Errorf("invite code %q is not valid", ev.ID)
	}
	if len(ev.Tags) != 2 {
		t.Errorf("expected 2 seeded tags, got %d", len(ev.Tags))
	}

	alice, err := cli.AddParticipant(ctx, ev.ID, &models.Participant{Name: "Alice"})
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if alice.ID == "" {
		t.Error("expected server-assigned participant ID")
	}

	renamed, err := cli.EditTitle(ctx, ev.ID, "Ski Trip 2026")
	if err != nil {
		t.Fatalf("EditTitle failed: %v", err)
	}
	if renamed.Title != "Ski Trip 2026" {
		t.Errorf("title = %q, want %q", renamed.Title, "Ski Trip 2026")
	}

	fetched, err := cli.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if fetched.Participant(alice.ID) == nil {
		t.Error("participant missing from fetched event")
	}

	if err := cli.RemoveParticipant(ctx, ev.ID, alice.ID); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}

	if err := cli.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if _, err := cli.GetEvent(ctx, ev.ID); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventNotFound(t *testing.T) {
	cli := newTestServer(t)
	ctx := context.Background()

	if _, err := cli.GetEvent(ctx, "ZZZZZZ"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("GetEvent: expected ErrNotFound, got %v", err)
	}
	if _, err := cli.EditTitle(ctx, "ZZZZZZ", "x"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("EditTitle: expected ErrNotFound, got %v", err)
	}
	if err := cli.DeleteExpense(ctx, "no-such-expense"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("DeleteExpense: expected ErrNotFound, got %v", err)
	}
}

func TestExpenseFlow(t *testing.T) {
	cli := newTestServer(t)
	ctx := context.Background()

	ev, err := cli.CreateEvent(ctx, "Road Trip")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	alice, _ := cli.AddParticipant(ctx, ev.ID, &models.Participant{Name: "Alice"})
	bob, _ := cli.AddParticipant(ctx, ev.ID, &models.Participant{Name: "Bob"})

	created, err := cli.AddExpense(ctx, ev.ID, &models.Expense{
		Name:         "Fuel",
		PriceInCents: 5250,
		Date:         time.Now(),
		Currency:     models.SupportedCurrency,
		OwedTo:       alice.ID,
		SplitAmong:   []string{alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if created.ID == "" {
		t.Error("expected server-assigned expense ID")
	}
	if created.Tag.Name != models.DefaultTagName {
		t.Errorf("expected default tag fill, got %q", created.Tag.Name)
	}

	// Invalid expense is rejected with a validation failure, not stored.
	_, err = cli.AddExpense(ctx, ev.ID, &models.Expense{
		Name:     "",
		Currency: "USD",
		OwedTo:   "ghost",
	})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected 400-class failure, got %v", err)
	}

	expenses, err := cli.Expenses(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Expenses failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}

	total, err := cli.TotalExpenses(ctx, ev.ID)
	if err != nil {
		t.Fatalf("TotalExpenses failed: %v", err)
	}
	if total != 5250 {
		t.Errorf("total = %d, want 5250", total)
	}

	created.PriceInCents = 6000
	updated, err := cli.EditExpense(ctx, created.ID, created)
	if err != nil {
		t.Fatalf("EditExpense failed: %v", err)
	}
	if updated.PriceInCents != 6000 {
		t.Errorf("updated price = %d, want 6000", updated.PriceInCents)
	}

	if err := cli.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	expenses, _ = cli.Expenses(ctx, ev.ID)
	if len(expenses) != 0 {
		t.Errorf("expected 0 expenses after delete, got %d", len(expenses))
	}
}

func TestTagLifecycle(t *testing.T) {
	cli := newTestServer(t)
	ctx := context.Background()

	ev, err := cli.CreateEvent(ctx, "Tagged")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := cli.UpsertTag(ctx, ev.ID, models.Tag{Name: "food", ColorCode: "#FF0000"}); err != nil {
		t.Fatalf("UpsertTag failed: %v", err)
	}
	fetched, err := cli.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if _, ok := fetched.Tag("food"); !ok {
		t.Error("upserted tag missing from event")
	}

	if err := cli.RemoveTag(ctx, ev.ID, "food"); err != nil {
		t.Fatalf("RemoveTag failed: %v", err)
	}

	// Reserved tags are rejected as user-input failures, not server faults.
	for _, name := range []string{models.DefaultTagName, models.TransferTagName} {
		err := cli.RemoveTag(ctx, ev.ID, name)
		if err == nil {
			t.Fatalf("removing reserved tag %q succeeded", name)
		}
		if errors.Is(err, client.ErrNotFound) {
			t.Errorf("removing %q: got not-found, want validation failure", name)
		}
		if !strings.Contains(err.Error(), "400") {
			t.Errorf("removing %q: expected a 400 response, got %v", name, err)
		}
	}
}

func TestChangeStreamDeliversInOrder(t *testing.T) {
	cli := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev, err := cli.CreateEvent(ctx, "Live Event")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	changes, errc, err := cli.Subscribe(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	alice, err := cli.AddParticipant(ctx, ev.ID, &models.Participant{Name: "Alice"})
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if _, err := cli.EditTitle(ctx, ev.ID, "Renamed Live Event"); err != nil {
		t.Fatalf("EditTitle failed: %v", err)
	}

	want := []models.ChangeKind{models.ChangeParticipantAdded, models.ChangeTitleEdited}
	for i, kind := range want {
		select {
		case ch := <-changes:
			if ch.Kind != kind {
				t.Errorf("change %d: kind = %s, want %s", i, ch.Kind, kind)
			}
			if ch.EventID != ev.ID {
				t.Errorf("change %d: eventID = %q, want %q", i, ch.EventID, ev.ID)
			}
			if kind == models.ChangeParticipantAdded && ch.Participant.ID != alice.ID {
				t.Errorf("participant payload = %+v", ch.Participant)
			}
		case err := <-errc:
			t.Fatalf("stream ended early: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatalf("change %d never arrived", i)
		}
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream never reported cancellation")
	}
}

func TestChangeStreamUnknownEvent(t *testing.T) {
	cli := newTestServer(t)
	_, _, err := cli.Subscribe(context.Background(), "ZZZZZZ")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestSyncerOverHTTP runs the sync manager against the real server: a
// mutation made through the REST API must land in the subscriber's cache
// via the change stream.
func TestSyncerOverHTTP(t *testing.T) {
	cli := newTestServer(t)
	ctx := context.Background()

	ev, err := cli.CreateEvent(ctx, "Shared Flat")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	alice, err := cli.AddParticipant(ctx, ev.ID, &models.Participant{Name: "Alice"})
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	c := cache.New()
	mgr := syncer.New(cli, c)
	if err := mgr.Subscribe(ctx, ev.ID); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer mgr.Unsubscribe()

	if snap := c.CurrentEvent(); snap == nil || snap.Participant(alice.ID) == nil {
		t.Fatal("initial fetch did not populate the cache")
	}

	exp, err := cli.AddExpense(ctx, ev.ID, &models.Expense{
		Name:         "Rent",
		PriceInCents: 120000,
		Date:         time.Now(),
		Currency:     models.SupportedCurrency,
		OwedTo:       alice.ID,
		SplitAmong:   []string{alice.ID},
	})
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := c.CurrentEvent(); snap != nil && snap.Expense(exp.ID) != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pushed change never reached the subscriber's cache")
}
