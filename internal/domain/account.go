package domain

import "time"

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account represents a ledger account holding a balance in the minor unit of
// its currency. Balance and Version are written only by the posting engine;
// Balance always equals the sum of the signed amounts of all posted entries
// referencing the account. Accounts are never deleted, only closed.
type Account struct {
	ID           string
	Currency     string
	Status       AccountStatus
	Balance      int64
	Version      int64
	LastSequence int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may be referenced by new entries.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Freeze transitions the account to frozen. Freezing a frozen account is a
// no-op; closed accounts cannot be frozen.
func (a *Account) Freeze() error {
	switch a.Status {
	case AccountStatusClosed:
		return ErrAccountClosed
	case AccountStatusFrozen:
		return nil
	}

	a.Status = AccountStatusFrozen

	return nil
}

// Close transitions the account to closed. Only zero-balance accounts close.
func (a *Account) Close() error {
	if a.Status == AccountStatusClosed {
		return nil
	}

	if a.Balance != 0 {
		return ErrNonZeroBalanceOnClose
	}

	a.Status = AccountStatusClosed

	return nil
}

// Apply returns the balance after applying a signed minor-unit amount.
func (a *Account) Apply(amount int64) int64 {
	return a.Balance + amount
}
