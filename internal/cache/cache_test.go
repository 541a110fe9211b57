package cache

import (
	"testing"

	"github.com/evenly-app/evenly/internal/models"
)

func loadedCache(t *testing.T) (*EventCache, *models.Event) {
	t.Helper()
	ev := models.NewEvent("trip")
	ev.AddParticipant(&models.Participant{ID: "a", Name: "Ann"})
	ev.AddParticipant(&models.Participant{ID: "b", Name: "Ben"})
	ev.AddExpense(&models.Expense{ID: "x1", Name: "taxi", PriceInCents: 900, OwedTo: "a", SplitAmong: []string{"a", "b"}})
	c := New()
	c.Load(ev)
	return c, ev
}

func TestLoadAndSnapshot(t *testing.T) {
	c, ev := loadedCache(t)

	if got := c.EventID(); got != ev.ID {
		t.Errorf("EventID() = %q, want %q", got, ev.ID)
	}

	snap := c.CurrentEvent()
	if snap == nil || snap.ID != ev.ID || len(snap.Expenses) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	// Mutating the snapshot must not leak into the cache.
	snap.Expenses[0].PriceInCents = 1
	snap.Participants[0].Name = "changed"
	again := c.CurrentEvent()
	if again.Expenses[0].PriceInCents != 900 {
		t.Error("snapshot mutation leaked into cached expense")
	}
	if again.Participants[0].Name != "Ann" {
		t.Error("snapshot mutation leaked into cached participant")
	}
}

func TestApplyRemoteChange(t *testing.T) {
	tests := []struct {
		name     string
		change   func(eventID string) models.Change
		applied  bool
		validate func(t *testing.T, ev *models.Event)
	}{
		{
			name: "expense added",
			change: func(id string) models.Change {
				return models.Change{
					EventID: id,
					Kind:    models.ChangeExpenseAdded,
					Expense: &models.Expense{ID: "x2", Name: "beer", PriceInCents: 500, OwedTo: "b"},
				}
			},
			applied: true,
			validate: func(t *testing.T, ev *models.Event) {
				if ev.Expense("x2") == nil {
					t.Error("added expense missing")
				}
			},
		},
		{
			name: "expense edited wins over cached copy",
			change: func(id string) models.Change {
				return models.Change{
					EventID: id,
					Kind:    models.ChangeExpenseEdited,
					Expense: &models.Expense{ID: "x1", Name: "taxi", PriceInCents: 1100, OwedTo: "a"},
				}
			},
			applied: true,
			validate: func(t *testing.T, ev *models.Event) {
				if got := ev.Expense("x1").PriceInCents; got != 1100 {
					t.Errorf("price = %d, want 1100", got)
				}
			},
		},
		{
			name: "remove of absent expense is a no-op",
			change: func(id string) models.Change {
				return models.Change{EventID: id, Kind: models.ChangeExpenseRemoved, ExpenseID: "ghost"}
			},
			applied: true,
			validate: func(t *testing.T, ev *models.Event) {
				if len(ev.Expenses) != 1 {
					t.Errorf("expense set changed: %d entries", len(ev.Expenses))
				}
			},
		},
		{
			name: "participant removed cascades locally",
			change: func(id string) models.Change {
				return models.Change{EventID: id, Kind: models.ChangeParticipantRemoved, ParticipantID: "a"}
			},
			applied: true,
			validate: func(t *testing.T, ev *models.Event) {
				if ev.Participant("a") != nil {
					t.Error("participant still present")
				}
				if ev.Expense("x1") != nil {
					t.Error("expense paid by removed participant still present")
				}
			},
		},
		{
			name: "title edited",
			change: func(id string) models.Change {
				return models.Change{EventID: id, Kind: models.ChangeTitleEdited, Title: "renamed"}
			},
			applied: true,
			validate: func(t *testing.T, ev *models.Event) {
				if ev.Title != "renamed" {
					t.Errorf("title = %q", ev.Title)
				}
			},
		},
		{
			name: "change for different event is discarded",
			change: func(string) models.Change {
				return models.Change{
					EventID: "ZZZZZZ",
					Kind:    models.ChangeTitleEdited,
					Title:   "should not land",
				}
			},
			applied: false,
			validate: func(t *testing.T, ev *models.Event) {
				if ev.Title == "should not land" {
					t.Error("change for other event applied")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ev := loadedCache(t)
			applied := c.ApplyRemoteChange(tt.change(ev.ID))
			if applied != tt.applied {
				t.Errorf("ApplyRemoteChange() = %v, want %v", applied, tt.applied)
			}
			tt.validate(t, c.CurrentEvent())
		})
	}
}

func TestEventDeletedClearsCache(t *testing.T) {
	c, ev := loadedCache(t)
	if !c.ApplyRemoteChange(models.Change{EventID: ev.ID, Kind: models.ChangeEventDeleted}) {
		t.Fatal("delete not applied")
	}
	if c.CurrentEvent() != nil {
		t.Error("cache still holds event after deletion")
	}
}

func TestCloseDiscardsLaterChanges(t *testing.T) {
	c, ev := loadedCache(t)
	c.Close()

	applied := c.ApplyRemoteChange(models.Change{
		EventID: ev.ID,
		Kind:    models.ChangeExpenseAdded,
		Expense: &models.Expense{ID: "x9", Name: "late"},
	})
	if applied {
		t.Error("change applied after Close")
	}
	if c.CurrentEvent() != nil {
		t.Error("cache not empty after Close")
	}
	if c.EventID() != "" {
		t.Error("EventID not empty after Close")
	}
}

func TestLoadReplacesWholesale(t *testing.T) {
	c, _ := loadedCache(t)
	next := models.NewEvent("other")
	c.Load(next)

	snap := c.CurrentEvent()
	if snap.ID != next.ID {
		t.Errorf("cache holds %q, want %q", snap.ID, next.ID)
	}
	if len(snap.Expenses) != 0 {
		t.Error("expenses from previous event survived Load")
	}
}
