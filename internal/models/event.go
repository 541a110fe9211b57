package models

import (
	"math/rand/v2"
	"strings"
	"time"
)

// inviteAlphabet omits I, 1, O and 0 so codes stay unambiguous when read
// aloud or copied by hand. 32^6 = 1,073,741,824 combinations.
const (
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteLength   = 6
)

// GenerateInviteCode returns a random 6-character event invite code drawn
// from the human-readable alphabet. Uniqueness across live events is the
// store's responsibility.
func GenerateInviteCode() string {
	var b strings.Builder
	b.Grow(inviteLength)
	for i := 0; i < inviteLength; i++ {
		b.WriteByte(inviteAlphabet[rand.IntN(len(inviteAlphabet))])
	}
	return b.String()
}

// ValidInviteCode reports whether s is a well-formed invite code.
func ValidInviteCode(s string) bool {
	if len(s) != inviteLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(inviteAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// Event is a shared expense ledger. It exclusively owns its participant,
// expense and tag collections; all mutation goes through its methods so
// that LastActivity stays accurate and removal cascades are applied.
type Event struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	CreationDate time.Time      `json:"creationDate"`
	LastActivity time.Time      `json:"lastActivity"`
	Participants []*Participant `json:"participants"`
	Expenses     []*Expense     `json:"expenses"`
	Tags         []Tag          `json:"tags"`
}

// NewEvent creates an empty event with a fresh random invite code and the
// two reserved tags seeded into its tag set.
func NewEvent(title string) *Event {
	now := time.Now()
	return &Event{
		ID:           GenerateInviteCode(),
		Title:        title,
		CreationDate: now,
		LastActivity: now,
		Tags:         []Tag{DefaultTag(), TransferTag()},
	}
}

// Equals defines event identity: two events are the same event iff their
// invite codes match.
func (e *Event) Equals(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.ID == other.ID
}

func (e *Event) touch() {
	e.LastActivity = time.Now()
}

// SetTitle updates the display title and touches LastActivity.
func (e *Event) SetTitle(title string) {
	e.Title = title
	e.touch()
}

// Participant returns the participant with the given ID, or nil.
func (e *Event) Participant(id string) *Participant {
	for _, p := range e.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddParticipant inserts a participant, replacing any existing participant
// with the same ID so that remote edits converge last-write-wins.
func (e *Event) AddParticipant(p *Participant) {
	for i, existing := range e.Participants {
		if existing.ID == p.ID {
			e.Participants[i] = p
			e.touch()
			return
		}
	}
	e.Participants = append(e.Participants, p)
	e.touch()
}

// RemoveParticipant removes the participant with the given ID and cascades:
// the participant is stripped from every expense's split set, and expenses
// they paid for are deleted outright. Removing an unknown ID is a no-op.
func (e *Event) RemoveParticipant(id string) {
	found := false
	for i, p := range e.Participants {
		if p.ID == id {
			e.Participants = append(e.Participants[:i], e.Participants[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	kept := e.Expenses[:0]
	for _, exp := range e.Expenses {
		if exp.OwedTo == id {
			continue
		}
		exp.RemoveFromSplit(id)
		kept = append(kept, exp)
	}
	e.Expenses = kept
	e.touch()
}

// Expense returns the expense with the given server ID, or nil.
func (e *Event) Expense(id string) *Expense {
	for _, exp := range e.Expenses {
		if exp.ID == id {
			return exp
		}
	}
	return nil
}

// ExpenseByIndex returns the expense with the given stable index, or nil.
// The index survives round-trips through persistence, unlike the
// server-assigned ID which only exists after creation.
func (e *Event) ExpenseByIndex(index int64) *Expense {
	for _, exp := range e.Expenses {
		if exp.Index == index {
			return exp
		}
	}
	return nil
}

// AddExpense inserts an expense, replacing any existing expense with the
// same server ID (last-write-wins for concurrent remote edits).
func (e *Event) AddExpense(exp *Expense) {
	if exp.ID != "" {
		for i, existing := range e.Expenses {
			if existing.ID == exp.ID {
				e.Expenses[i] = exp
				e.touch()
				return
			}
		}
	}
	e.Expenses = append(e.Expenses, exp)
	e.touch()
}

// RemoveExpense removes the expense with the given server ID.
// Removing an unknown ID is a no-op.
func (e *Event) RemoveExpense(id string) {
	for i, exp := range e.Expenses {
		if exp.ID == id {
			e.Expenses = append(e.Expenses[:i], e.Expenses[i+1:]...)
			e.touch()
			return
		}
	}
}

// TotalSpending is the sum of all expense amounts, in cents.
func (e *Event) TotalSpending() int64 {
	var total int64
	for _, exp := range e.Expenses {
		total += exp.PriceInCents
	}
	return total
}

// Tag returns the tag with the given name, or the zero Tag and false.
func (e *Event) Tag(name string) (Tag, bool) {
	for _, t := range e.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// UpsertTag adds the tag or updates the color of an existing one.
func (e *Event) UpsertTag(tag Tag) {
	for i, t := range e.Tags {
		if t.Name == tag.Name {
			e.Tags[i] = tag
			e.touch()
			return
		}
	}
	e.Tags = append(e.Tags, tag)
	e.touch()
}

// RemoveTag removes a tag by name and reports whether it was removed.
// Reserved tags cannot be removed. Expenses carrying the removed tag fall
// back to the default tag.
func (e *Event) RemoveTag(name string) bool {
	if name == DefaultTagName || name == TransferTagName {
		return false
	}
	for i, t := range e.Tags {
		if t.Name == name {
			e.Tags = append(e.Tags[:i], e.Tags[i+1:]...)
			for _, exp := range e.Expenses {
				if exp.Tag.Name == name {
					exp.Tag = DefaultTag()
				}
			}
			e.touch()
			return true
		}
	}
	return false
}

// SelectableTags returns the tags a user may attach to an expense, which
// excludes the reserved money-transfer tag.
func (e *Event) SelectableTags() []Tag {
	out := make([]Tag, 0, len(e.Tags))
	for _, t := range e.Tags {
		if t.Name == TransferTagName {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Clone returns a deep copy of the event. Snapshots handed out by the
// cache are clones so that readers never observe concurrent mutation.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := &Event{
		ID:           e.ID,
		Title:        e.Title,
		CreationDate: e.CreationDate,
		LastActivity: e.LastActivity,
		Tags:         append([]Tag(nil), e.Tags...),
	}
	if e.Participants != nil {
		cp.Participants = make([]*Participant, len(e.Participants))
		for i, p := range e.Participants {
			pc := *p
			cp.Participants[i] = &pc
		}
	}
	if e.Expenses != nil {
		cp.Expenses = make([]*Expense, len(e.Expenses))
		for i, exp := range e.Expenses {
			cp.Expenses[i] = exp.Clone()
		}
	}
	return cp
}
