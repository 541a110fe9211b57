// Package ledger computes per-participant balances from an event snapshot.
// All functions are pure: they take a snapshot, perform no I/O, and may be
// called from any goroutine as long as the snapshot is not mutated
// concurrently (the cache hands out deep copies for exactly this reason).
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/evenly-app/evenly/internal/models"
)

// precision is the number of fractional digits carried through the
// equal-split division. Dividing integer cents directly would lose
// fractional cents on every expense; four extra digits keep cumulative
// drift sub-cent until the final truncation.
const precision = 4

// TotalSpending is the sum of all expense amounts in cents. It must agree
// with the server-computed total from the total-expenses endpoint.
func TotalSpending(ev *models.Event) int64 {
	return ev.TotalSpending()
}

// SpendingPerPerson maps each participant ID to the total cents they paid
// across all expenses. Participants who paid nothing map to 0.
func SpendingPerPerson(ev *models.Event) map[string]int64 {
	spending := make(map[string]int64, len(ev.Participants))
	for _, p := range ev.Participants {
		spending[p.ID] = 0
	}
	for _, exp := range ev.Expenses {
		spending[exp.OwedTo] += exp.PriceInCents
	}
	return spending
}

// OwedShares maps each participant ID to their net credit in cents:
// positive if the group owes them money, negative if they owe the group.
//
// For each expense the full amount is credited to the payer, then an equal
// share — the amount divided by the number of event participants, rounded
// half-up to four fractional digits — is debited from every participant.
// Final balances are truncated toward zero to integer cents.
//
// An event with no participants yields an empty map; the division is
// never attempted.
func OwedShares(ev *models.Event) map[string]int64 {
	credits := make(map[string]int64, len(ev.Participants))
	if len(ev.Participants) == 0 {
		return credits
	}

	acc := make(map[string]decimal.Decimal, len(ev.Participants))
	for _, p := range ev.Participants {
		acc[p.ID] = decimal.Zero
	}

	headcount := decimal.NewFromInt(int64(len(ev.Participants)))
	for _, exp := range ev.Expenses {
		cost := decimal.NewFromInt(exp.PriceInCents)
		acc[exp.OwedTo] = acc[exp.OwedTo].Add(cost)

		share := cost.DivRound(headcount, precision)
		for _, p := range ev.Participants {
			acc[p.ID] = acc[p.ID].Sub(share)
		}
	}

	for id, balance := range acc {
		credits[id] = balance.IntPart()
	}
	return credits
}
