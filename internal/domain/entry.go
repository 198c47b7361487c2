package domain

import "time"

// Direction marks which side of a posting an entry sits on. Debit entries
// carry negative signed amounts, credit entries positive ones.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// EntryInput is one proposed leg of a posting request.
type EntryInput struct {
	AccountID string
	Amount    int64
	Direction Direction
}

// Entry is a single immutable ledger entry belonging to exactly one
// transaction. Amount is signed, in the minor unit of the account's currency.
type Entry struct {
	ID              string
	TransactionID   string
	AccountID       string
	Amount          int64
	Direction       Direction
	PreviousBalance int64
	CurrentBalance  int64
	AccountVersion  int64
	CreatedAt       time.Time
}
