package domain

import "time"

// TransactionStatus is the outcome state of a posting attempt.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusPosted   TransactionStatus = "posted"
	TransactionStatusRejected TransactionStatus = "rejected"
)

// Transaction is a balanced set of entries applied as one atomic unit.
// A transaction is posted if and only if every entry is durable and every
// referenced account's balance reflects it; partial application is never
// observable. Transaction IDs are ULIDs, so lexical order is creation order.
type Transaction struct {
	ID             string
	Currency       string
	Status         TransactionStatus
	IdempotencyKey string
	ExternalRef    *string
	Entries        []*Entry
	CreatedAt      time.Time
}
