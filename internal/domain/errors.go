package domain

import (
	"errors"
	"fmt"
)

// RejectionReason enumerates why a posting or state transition was refused.
type RejectionReason string

const (
	ReasonUnbalanced            RejectionReason = "UNBALANCED"
	ReasonUnknownAccount        RejectionReason = "UNKNOWN_ACCOUNT"
	ReasonInactiveAccount       RejectionReason = "INACTIVE_ACCOUNT"
	ReasonInvalidAmount         RejectionReason = "INVALID_AMOUNT"
	ReasonCurrencyMismatch      RejectionReason = "CURRENCY_MISMATCH"
	ReasonNonZeroBalanceOnClose RejectionReason = "NONZERO_BALANCE_ON_CLOSE"
	ReasonLockTimeout           RejectionReason = "LOCK_TIMEOUT"
)

// Rejection is a structured validation rejection. It is an error value so it
// flows through the usecase layer, but it is always a controlled outcome:
// callers can correct their input and retry with a fresh idempotency key.
type Rejection struct {
	Reason        RejectionReason
	Detail        string
	TransactionID string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("posting rejected: %s", r.Reason)
	}

	return fmt.Sprintf("posting rejected: %s: %s", r.Reason, r.Detail)
}

// AsRejection unwraps err to a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}

	return nil, false
}

var (
	// Account errors
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountClosed         = errors.New("account is closed")
	ErrNonZeroBalanceOnClose = errors.New("account balance must be zero to close")
	ErrInvalidCurrency       = errors.New("invalid currency code")

	// Posting errors
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrLockTimeout            = errors.New("could not acquire account locks in time")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyKeyReused   = errors.New("idempotency key already used by another transaction")
	ErrPostingInFlight        = errors.New("a posting with this idempotency key is still in flight")

	// Audit errors
	ErrAuditChainBroken = errors.New("audit hash chain is broken")
)
