package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// displayAmount renders minor units as a major-unit decimal string.
func displayAmount(amount int64, currency string) string {
	return decimal.New(amount, -domain.MinorUnitExponent(currency)).String()
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID             string    `json:"id"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
	Version        int64     `json:"version"`
	LastSequence   int64     `json:"last_sequence"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		Currency:       a.Currency,
		Status:         string(a.Status),
		Balance:        a.Balance,
		BalanceDisplay: displayAmount(a.Balance, a.Currency),
		Version:        a.Version,
		LastSequence:   a.LastSequence,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// BalanceResponse represents a balance projection in API responses.
type BalanceResponse struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Currency       string `json:"currency"`
	AsOfSequence   int64  `json:"as_of_sequence"`
}

// BalanceFromView converts a balance view to a response.
func BalanceFromView(v *usecase.BalanceView) *BalanceResponse {
	return &BalanceResponse{
		AccountID:      v.AccountID,
		Balance:        v.Balance,
		BalanceDisplay: displayAmount(v.Balance, v.Currency),
		Currency:       v.Currency,
		AsOfSequence:   v.AsOfSequence,
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID              string    `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	AccountID       string    `json:"account_id"`
	Amount          int64     `json:"amount"`
	Direction       string    `json:"direction"`
	PreviousBalance int64     `json:"previous_balance"`
	CurrentBalance  int64     `json:"current_balance"`
	AccountVersion  int64     `json:"account_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		TransactionID:   e.TransactionID,
		AccountID:       e.AccountID,
		Amount:          e.Amount,
		Direction:       string(e.Direction),
		PreviousBalance: e.PreviousBalance,
		CurrentBalance:  e.CurrentBalance,
		AccountVersion:  e.AccountVersion,
		CreatedAt:       e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// TransactionResponse represents a transaction in API responses. Replayed
// marks responses served from the idempotency store.
type TransactionResponse struct {
	ID             string           `json:"id"`
	Currency       string           `json:"currency"`
	Status         string           `json:"status"`
	IdempotencyKey string           `json:"idempotency_key"`
	ExternalRef    *string          `json:"external_ref,omitempty"`
	Entries        []*EntryResponse `json:"entries"`
	Replayed       bool             `json:"replayed"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction, replayed bool) *TransactionResponse {
	return &TransactionResponse{
		ID:             t.ID,
		Currency:       t.Currency,
		Status:         string(t.Status),
		IdempotencyKey: t.IdempotencyKey,
		ExternalRef:    t.ExternalRef,
		Entries:        EntriesFromDomain(t.Entries),
		Replayed:       replayed,
		CreatedAt:      t.CreatedAt,
	}
}

// AuditRecordResponse represents an audit record in API responses. The
// payload is embedded verbatim; its bytes are covered by the record hash.
type AuditRecordResponse struct {
	Sequence      int64           `json:"sequence"`
	Kind          string          `json:"kind"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AccountID     string          `json:"account_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	PrevHash      string          `json:"prev_hash"`
	Hash          string          `json:"hash"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditRecordFromDomain converts a domain audit record to a response.
func AuditRecordFromDomain(r *domain.AuditRecord) *AuditRecordResponse {
	return &AuditRecordResponse{
		Sequence:      r.Sequence,
		Kind:          string(r.Kind),
		TransactionID: r.TransactionID,
		AccountID:     r.AccountID,
		Reason:        string(r.Reason),
		Payload:       json.RawMessage(r.Payload),
		PrevHash:      r.PrevHash,
		Hash:          r.Hash,
		CreatedAt:     r.CreatedAt,
	}
}

// AuditRecordsFromDomain converts domain audit records to responses.
func AuditRecordsFromDomain(records []*domain.AuditRecord) []*AuditRecordResponse {
	result := make([]*AuditRecordResponse, len(records))
	for i, r := range records {
		result[i] = AuditRecordFromDomain(r)
	}
	return result
}

// ChainReportResponse represents an audit chain verification result.
type ChainReportResponse struct {
	Records   int64     `json:"records"`
	HeadHash  string    `json:"head_hash"`
	Intact    bool      `json:"intact"`
	CheckedAt time.Time `json:"checked_at"`
}

// ConsistencyResponse represents the ledger-wide consistency check result.
type ConsistencyResponse struct {
	Consistent   bool      `json:"consistent"`
	TotalBalance int64     `json:"total_balance"`
	TotalEntries int64     `json:"total_entries"`
	CheckedAt    time.Time `json:"checked_at"`
}

// DriftResponse represents one account's reconciliation result.
type DriftResponse struct {
	AccountID        string `json:"account_id"`
	Currency         string `json:"currency,omitempty"`
	RecordedBalance  int64  `json:"recorded_balance"`
	ReplayedBalance  int64  `json:"replayed_balance"`
	Drift            int64  `json:"drift"`
	DisplayRecorded  string `json:"display_recorded,omitempty"`
	DisplayReplayed  string `json:"display_replayed,omitempty"`
	Reconciled       bool   `json:"reconciled"`
	LastAuditApplied int64  `json:"last_audit_applied"`
}

// DriftFromDomain converts an account drift to a response.
func DriftFromDomain(d *usecase.AccountDrift) *DriftResponse {
	return &DriftResponse{
		AccountID:        d.AccountID,
		Currency:         d.Currency,
		RecordedBalance:  d.RecordedBalance,
		ReplayedBalance:  d.ReplayedBalance,
		Drift:            d.Drift,
		DisplayRecorded:  d.DisplayRecorded.String(),
		DisplayReplayed:  d.DisplayReplayed.String(),
		Reconciled:       d.Reconciled,
		LastAuditApplied: d.LastAuditApplied,
	}
}

// ReconciliationResponse represents a full reconciliation report.
type ReconciliationResponse struct {
	TotalAccounts      int              `json:"total_accounts"`
	ReconciledAccounts int              `json:"reconciled_accounts"`
	Discrepancies      []*DriftResponse `json:"discrepancies"`
	ReplayedRecords    int64            `json:"replayed_records"`
	CheckedAt          time.Time        `json:"checked_at"`
}

// ReconciliationFromDomain converts a reconciliation report to a response.
func ReconciliationFromDomain(r *usecase.Report) *ReconciliationResponse {
	discrepancies := make([]*DriftResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = DriftFromDomain(d)
	}

	return &ReconciliationResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		ReplayedRecords:    r.ReplayedRecords,
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RejectionResponse represents a rejected posting in API responses.
type RejectionResponse struct {
	Error         string `json:"error"`
	Reason        string `json:"reason"`
	Detail        string `json:"detail,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// RejectionFromDomain converts a domain rejection to a response.
func RejectionFromDomain(rej *domain.Rejection) *RejectionResponse {
	return &RejectionResponse{
		Error:         "posting rejected",
		Reason:        string(rej.Reason),
		Detail:        rej.Detail,
		TransactionID: rej.TransactionID,
	}
}
