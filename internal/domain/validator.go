package domain

import "fmt"

// DefaultMaxEntryAmount bounds the magnitude of a single entry, in minor
// units (one trillion).
const DefaultMaxEntryAmount int64 = 1_000_000_000_000

// ValidationOptions tunes the entry validator.
type ValidationOptions struct {
	// MaxEntryAmount is the largest permitted |amount|; zero means the default.
	MaxEntryAmount int64
	// RejectDuplicateLeg refuses entry sets containing the same
	// account+direction pair more than once. Default policy allows them.
	RejectDuplicateLeg bool
}

func (o ValidationOptions) maxAmount() int64 {
	if o.MaxEntryAmount > 0 {
		return o.MaxEntryAmount
	}

	return DefaultMaxEntryAmount
}

// ValidateEntrySet checks a proposed single-currency entry set against the
// supplied account snapshot. It is a pure function over its arguments: no
// locks, no side effects. A nil return means the set is valid.
//
// Checks run in a fixed order so the reported reason is deterministic:
// entry count, zero-sum, account existence and status, amount constraints,
// duplicate-leg policy.
func ValidateEntrySet(currency string, entries []EntryInput, accounts map[string]*Account, opts ValidationOptions) *Rejection {
	if len(entries) < 2 {
		return &Rejection{
			Reason: ReasonUnbalanced,
			Detail: fmt.Sprintf("entry set must contain at least 2 entries, got %d", len(entries)),
		}
	}

	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}

	if sum != 0 {
		return &Rejection{
			Reason: ReasonUnbalanced,
			Detail: fmt.Sprintf("signed amounts sum to %d, want 0", sum),
		}
	}

	currency = NormalizeCurrency(currency)
	for _, e := range entries {
		account, ok := accounts[e.AccountID]
		if !ok || account == nil {
			return &Rejection{
				Reason: ReasonUnknownAccount,
				Detail: fmt.Sprintf("account %s does not exist", e.AccountID),
			}
		}

		if !account.IsActive() {
			return &Rejection{
				Reason: ReasonInactiveAccount,
				Detail: fmt.Sprintf("account %s is %s", e.AccountID, account.Status),
			}
		}

		if account.Currency != currency {
			return &Rejection{
				Reason: ReasonCurrencyMismatch,
				Detail: fmt.Sprintf("account %s holds %s, posting is %s", e.AccountID, account.Currency, currency),
			}
		}
	}

	maxAmount := opts.maxAmount()
	for _, e := range entries {
		if e.Amount == 0 {
			return &Rejection{
				Reason: ReasonInvalidAmount,
				Detail: fmt.Sprintf("entry for account %s has zero amount", e.AccountID),
			}
		}

		if e.Amount > maxAmount || e.Amount < -maxAmount {
			return &Rejection{
				Reason: ReasonInvalidAmount,
				Detail: fmt.Sprintf("entry amount %d exceeds bound %d", e.Amount, maxAmount),
			}
		}

		if !e.Direction.Valid() {
			return &Rejection{
				Reason: ReasonInvalidAmount,
				Detail: fmt.Sprintf("unknown direction %q", e.Direction),
			}
		}

		if (e.Direction == DirectionDebit && e.Amount > 0) || (e.Direction == DirectionCredit && e.Amount < 0) {
			return &Rejection{
				Reason: ReasonInvalidAmount,
				Detail: fmt.Sprintf("amount %d does not match direction %s", e.Amount, e.Direction),
			}
		}
	}

	if opts.RejectDuplicateLeg {
		type leg struct {
			account   string
			direction Direction
		}

		seen := make(map[leg]bool, len(entries))
		for _, e := range entries {
			l := leg{account: e.AccountID, direction: e.Direction}
			if seen[l] {
				return &Rejection{
					Reason: ReasonInvalidAmount,
					Detail: fmt.Sprintf("duplicate %s leg for account %s", e.Direction, e.AccountID),
				}
			}
			seen[l] = true
		}
	}

	return nil
}
