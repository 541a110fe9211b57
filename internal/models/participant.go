package models

// Participant is a person taking part in an event. The bank fields are
// carried for display on the settlement screen and play no role in
// balance computation.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format),
	// assigned by the server on creation.
	ID string `json:"id"`

	// Name is the display name shown in payer and split selections.
	Name string `json:"name"`

	// Email is optional contact metadata.
	Email string `json:"email,omitempty"`

	// IBAN and BIC identify the account a settlement transfer should go to.
	IBAN string `json:"iban,omitempty"`
	BIC  string `json:"bic,omitempty"`
}

// Equals defines participant identity by ID alone; display fields may
// differ between two views of the same person mid-edit.
func (p *Participant) Equals(other *Participant) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.ID == other.ID
}
