package dto

import (
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Currency string `json:"currency"`
}

// EntryItem is one leg of a posting request. Amount is signed, in minor
// units of the posting currency.
type EntryItem struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Direction string `json:"direction"`
}

// PostTransactionRequest represents a request to post a balanced entry set.
// The idempotency key may come from the Idempotency-Key header instead.
type PostTransactionRequest struct {
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	Currency       string      `json:"currency"`
	ExternalRef    *string     `json:"external_ref,omitempty"`
	Entries        []EntryItem `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransactionRequest) ToUseCaseInput() usecase.PostTransactionInput {
	entries := make([]domain.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = domain.EntryInput{
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: domain.Direction(e.Direction),
		}
	}

	return usecase.PostTransactionInput{
		IdempotencyKey: r.IdempotencyKey,
		Currency:       r.Currency,
		ExternalRef:    r.ExternalRef,
		Entries:        entries,
	}
}
