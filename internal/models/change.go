package models

// ChangeKind enumerates the single-entity mutations a client can receive.
type ChangeKind string

const (
	ChangeParticipantAdded   ChangeKind = "participant_added"
	ChangeParticipantRemoved ChangeKind = "participant_removed"
	ChangeExpenseAdded       ChangeKind = "expense_added"
	ChangeExpenseEdited      ChangeKind = "expense_edited"
	ChangeExpenseRemoved     ChangeKind = "expense_removed"
	ChangeTitleEdited        ChangeKind = "title_edited"
	ChangeTagUpserted        ChangeKind = "tag_upserted"
	ChangeTagRemoved         ChangeKind = "tag_removed"
	ChangeEventDeleted       ChangeKind = "event_deleted"
)

// Change is one mutation to one entity of one event, delivered from the
// server to subscribed clients in commit order. Exactly the payload field
// matching Kind is populated; removals carry only the entity's ID.
type Change struct {
	EventID string     `json:"eventId"`
	Kind    ChangeKind `json:"kind"`

	Participant   *Participant `json:"participant,omitempty"`
	ParticipantID string       `json:"participantId,omitempty"`
	Expense       *Expense     `json:"expense,omitempty"`
	ExpenseID     string       `json:"expenseId,omitempty"`
	Title         string       `json:"title,omitempty"`
	Tag           *Tag         `json:"tag,omitempty"`
	TagName       string       `json:"tagName,omitempty"`
}
