// Package settle turns a net-credit map into a minimal set of transfer
// instructions that zero every participant's balance.
package settle

import (
	"fmt"

	"github.com/evenly-app/evenly/internal/models"
)

// Transfer instructs one debtor to pay one creditor.
type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amountCents"`
}

// ErrUnbalanced reports that the input credit map does not sum to zero.
// This signals a balance-engine bug upstream, not a user-facing condition;
// callers must not attempt silent recovery, as that could hide the bug.
type ErrUnbalanced struct {
	ResidualCents int64
}

func (e *ErrUnbalanced) Error() string {
	return fmt.Sprintf("settle: credits do not sum to zero (residual %d cents)", e.ResidualCents)
}

type party struct {
	id     string
	amount int64 // always positive: debt for debtors, credit for creditors
}

// largest returns the index of the party with the greatest amount,
// breaking ties by the lower ID so output is reproducible.
func largest(ps []party) int {
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i].amount > ps[best].amount ||
			(ps[i].amount == ps[best].amount && ps[i].id < ps[best].id) {
			best = i
		}
	}
	return best
}

func drop(ps []party, i int) []party {
	return append(ps[:i], ps[i+1:]...)
}

// Settle produces transfers that bring every participant's credit to
// exactly zero: repeatedly match the largest debtor with the largest
// creditor, transfer the smaller of the two amounts, and drop whichever
// side reaches zero. Zero-credit participants are omitted entirely, so a
// map of all zeros yields no transfers and running Settle on the
// post-settlement state is an empty sequence again (idempotence).
//
// Per-participant truncation in the balance engine can leave the map sum
// a few cents off zero; up to one cent per participant is tolerated, and
// the residual simply remains on the longer side unmatched. Anything
// larger returns ErrUnbalanced.
func Settle(credits map[string]int64) ([]Transfer, error) {
	var sum int64
	var debtors, creditors []party
	for id, credit := range credits {
		sum += credit
		switch {
		case credit < 0:
			debtors = append(debtors, party{id: id, amount: -credit})
		case credit > 0:
			creditors = append(creditors, party{id: id, amount: credit})
		}
	}

	tolerance := int64(len(credits))
	if sum > tolerance || sum < -tolerance {
		return nil, &ErrUnbalanced{ResidualCents: sum}
	}

	var transfers []Transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		d := largest(debtors)
		c := largest(creditors)
		amount := min(debtors[d].amount, creditors[c].amount)
		transfers = append(transfers, Transfer{
			From:        debtors[d].id,
			To:          creditors[c].id,
			AmountCents: amount,
		})
		debtors[d].amount -= amount
		creditors[c].amount -= amount
		if debtors[d].amount == 0 {
			debtors = drop(debtors, d)
		}
		if creditors[c].amount == 0 {
			creditors = drop(creditors, c)
		}
	}
	return transfers, nil
}

// AsExpenses renders transfers as money-transfer expense records carrying
// the reserved transfer tag, ready to be added to an event once the
// payment has actually been made.
func AsExpenses(transfers []Transfer) []*models.Expense {
	out := make([]*models.Expense, len(transfers))
	for i, t := range transfers {
		out[i] = &models.Expense{
			Name:         "settlement",
			PriceInCents: t.AmountCents,
			Currency:     models.SupportedCurrency,
			OwedTo:       t.To,
			SplitAmong:   []string{t.From},
			Tag:          models.TransferTag(),
		}
	}
	return out
}
