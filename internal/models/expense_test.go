package models

import (
	"testing"
	"time"
)

func validExpense() *Expense {
	return &Expense{
		Name:         "Groceries",
		PriceInCents: 1250,
		Date:         time.Now(),
		Currency:     SupportedCurrency,
		OwedTo:       "a",
		SplitAmong:   []string{"a", "b"},
		Tag:          DefaultTag(),
	}
}

func TestExpenseValidate(t *testing.T) {
	ev := NewEvent("t")
	ev.AddParticipant(&Participant{ID: "a", Name: "Ann"})
	ev.AddParticipant(&Participant{ID: "b", Name: "Ben"})

	tests := []struct {
		name       string
		mutate     func(*Expense)
		wantFields []string
	}{
		{
			name:       "valid expense passes",
			mutate:     func(*Expense) {},
			wantFields: nil,
		},
		{
			name:       "empty purpose",
			mutate:     func(x *Expense) { x.Name = "  " },
			wantFields: []string{"purpose"},
		},
		{
			name:       "zero amount",
			mutate:     func(x *Expense) { x.PriceInCents = 0 },
			wantFields: []string{"amount"},
		},
		{
			name:       "negative amount",
			mutate:     func(x *Expense) { x.PriceInCents = -5 },
			wantFields: []string{"amount"},
		},
		{
			name:       "wrong currency",
			mutate:     func(x *Expense) { x.Currency = "USD" },
			wantFields: []string{"currency"},
		},
		{
			name:       "missing date",
			mutate:     func(x *Expense) { x.Date = time.Time{} },
			wantFields: []string{"date"},
		},
		{
			name:       "no payer",
			mutate:     func(x *Expense) { x.OwedTo = "" },
			wantFields: []string{"payer"},
		},
		{
			name:       "payer not in event",
			mutate:     func(x *Expense) { x.OwedTo = "ghost" },
			wantFields: []string{"payer"},
		},
		{
			name:       "no split method",
			mutate:     func(x *Expense) { x.SplitAmong = nil },
			wantFields: []string{"split"},
		},
		{
			name:       "split references outsider",
			mutate:     func(x *Expense) { x.SplitAmong = []string{"a", "ghost"} },
			wantFields: []string{"split"},
		},
		{
			name: "multiple failures reported together",
			mutate: func(x *Expense) {
				x.Name = ""
				x.PriceInCents = 0
				x.OwedTo = ""
			},
			wantFields: []string{"purpose", "amount", "payer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := validExpense()
			tt.mutate(x)
			errs := x.Validate(ev)
			if tt.wantFields == nil {
				if errs != nil {
					t.Fatalf("Validate() = %v, want nil", errs)
				}
				return
			}
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("Validate() = %v, want fields %v", errs, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, ok := errs[f]; !ok {
					t.Errorf("missing error for field %q in %v", f, errs)
				}
			}
		})
	}
}

// The payer does not have to share the cost: paying for others only is a
// valid split, and so is paying for a group that includes yourself.
func TestPayerMayOrMayNotBeInSplit(t *testing.T) {
	ev := NewEvent("t")
	ev.AddParticipant(&Participant{ID: "a", Name: "Ann"})
	ev.AddParticipant(&Participant{ID: "b", Name: "Ben"})

	withPayer := validExpense()
	if errs := withPayer.Validate(ev); errs != nil {
		t.Errorf("payer-in-split rejected: %v", errs)
	}

	withoutPayer := validExpense()
	withoutPayer.SplitAmong = []string{"b"}
	if errs := withoutPayer.Validate(ev); errs != nil {
		t.Errorf("payer-out-of-split rejected: %v", errs)
	}
}

func TestValidateWithoutEventSkipsMembership(t *testing.T) {
	x := &Expense{
		Name:         "Taxi",
		PriceInCents: 900,
		Date:         time.Now(),
		Currency:     SupportedCurrency,
		OwedTo:       "anyone",
		SplitAmong:   []string{"whoever"},
	}
	if errs := x.Validate(nil); errs != nil {
		t.Errorf("field-level validation failed: %v", errs)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{"amount": "amount must be positive", "payer": "a payer must be selected"}
	msg := errs.Error()
	// Deterministic field order regardless of map iteration.
	want := "validation failed: amount: amount must be positive; payer: a payer must be selected"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}
