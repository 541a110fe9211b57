// Package models defines the core domain models for Evenly.
//
// # Models
//
//   - Event: a shared ledger identified by a 6-character invite code,
//     owning its participants, expenses and tags
//   - Participant: a person in an event, identified by an opaque ID
//   - Expense: a single cost record, paid by one participant and split
//     among a subset of the event's participants
//   - Tag: a named, colored label; every expense carries exactly one
//   - Change: a single-entity mutation notification delivered to
//     subscribed clients
//
// # Design Principles
//
//  1. **Explicit ownership**: an Event exclusively owns its participant,
//     expense and tag collections; removal cascades are explicit
//     procedures on Event, never implicit.
//  2. **Avoid circular references**: expenses reference participants by
//     ID string, never by pointer back into the event.
//  3. **Explicit equality**: identity is defined per entity by enumerated
//     fields (Event by ID, Participant by ID, Expense by server ID),
//     never by reflection over the whole struct.
//  4. **Integer money**: amounts are integer cents at the model boundary;
//     fractional arithmetic lives in the ledger package only.
package models
