package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SupportedCurrency is the single currency the ledger accepts.
const SupportedCurrency = "EUR"

// Expense is one cost record in an event. The payer (OwedTo) fronted the
// full amount; the participants in SplitAmong share the cost. The payer
// may or may not appear in SplitAmong — both are valid real-world splits.
type Expense struct {
	// ID is the server-assigned identifier (UUID format). Empty until the
	// expense has been persisted.
	ID string `json:"id,omitempty"`

	// Index is a stable identifier assigned by the client, used for lookup
	// independent of persistence keys.
	Index int64 `json:"index"`

	// Name is the purpose of the expense ("Groceries", "Taxi").
	Name string `json:"name"`

	// PriceInCents is the amount paid, in integer cents. Must be positive
	// for a valid expense.
	PriceInCents int64 `json:"priceInCents"`

	// Date is when the expense occurred.
	Date time.Time `json:"date"`

	// Currency must equal SupportedCurrency for a valid expense.
	Currency string `json:"currency"`

	// OwedTo is the ID of the participant who paid and is owed the money.
	OwedTo string `json:"owedTo"`

	// SplitAmong holds the IDs of the participants sharing the cost.
	SplitAmong []string `json:"splitAmong"`

	// Tag labels the expense. Every expense carries exactly one tag;
	// the default tag is used when none is chosen.
	Tag Tag `json:"tag"`
}

// Equals defines expense identity: by server ID when both sides have one,
// otherwise by pointer identity (pre-persistence expenses only exist in
// one cache).
func (x *Expense) Equals(other *Expense) bool {
	if x == nil || other == nil {
		return x == other
	}
	if x.ID != "" && other.ID != "" {
		return x.ID == other.ID
	}
	return x == other
}

// InSplit reports whether the participant shares this expense's cost.
func (x *Expense) InSplit(participantID string) bool {
	for _, id := range x.SplitAmong {
		if id == participantID {
			return true
		}
	}
	return false
}

// RemoveFromSplit strips a participant from the split set, if present.
func (x *Expense) RemoveFromSplit(participantID string) {
	for i, id := range x.SplitAmong {
		if id == participantID {
			x.SplitAmong = append(x.SplitAmong[:i], x.SplitAmong[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the expense.
func (x *Expense) Clone() *Expense {
	cp := *x
	cp.SplitAmong = append([]string(nil), x.SplitAmong...)
	return &cp
}

// ValidationErrors maps a field name to a human-readable problem with it.
// All fields are checked so the caller can surface every error at once.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the expense against the event it belongs to. It returns
// nil when the expense is valid, otherwise a ValidationErrors listing
// every failed field. Clients validate before submission; the server
// validates again on create.
func (x *Expense) Validate(ev *Event) ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(x.Name) == "" {
		errs["purpose"] = "purpose must not be empty"
	}
	if x.PriceInCents <= 0 {
		errs["amount"] = "amount must be positive"
	} else if x.Currency != SupportedCurrency {
		errs["currency"] = fmt.Sprintf("currency must be %s", SupportedCurrency)
	}
	if x.Date.IsZero() {
		errs["date"] = "date must be set"
	}
	if x.OwedTo == "" {
		errs["payer"] = "a payer must be selected"
	} else if ev != nil && ev.Participant(x.OwedTo) == nil {
		errs["payer"] = "payer is not a participant of the event"
	}
	if len(x.SplitAmong) == 0 {
		errs["split"] = "a split method must be chosen"
	} else if ev != nil {
		for _, id := range x.SplitAmong {
			if ev.Participant(id) == nil {
				errs["split"] = "split references a participant not in the event"
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
