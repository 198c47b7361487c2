package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AuditKind classifies audit records.
type AuditKind string

const (
	AuditTransactionPosted   AuditKind = "transaction.posted"
	AuditTransactionRejected AuditKind = "transaction.rejected"
	AuditAccountCreated      AuditKind = "account.created"
	AuditAccountFrozen       AuditKind = "account.frozen"
	AuditAccountClosed       AuditKind = "account.closed"
	AuditAccountCloseDenied  AuditKind = "account.close_denied"
)

// GenesisHash anchors the audit hash chain.
var GenesisHash = strings.Repeat("0", 64)

// AuditRecord is one immutable, append-only audit log record. Sequence is
// strictly increasing across the whole ledger and establishes the total order
// of postings. Each record extends a SHA-256 hash chain over the previous
// record, so any mutation of history is detectable.
type AuditRecord struct {
	Sequence      int64
	Kind          AuditKind
	TransactionID string
	AccountID     string
	Reason        RejectionReason
	Payload       string
	PrevHash      string
	Hash          string
	CreatedAt     time.Time
}

// AuditedEntry is the entry snapshot embedded in a transaction payload. It
// carries everything needed to rebuild balances from the log alone.
type AuditedEntry struct {
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Direction Direction `json:"direction"`
}

type transactionPayload struct {
	TransactionID string          `json:"transaction_id"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Reason        RejectionReason `json:"reason,omitempty"`
	ExternalRef   *string         `json:"external_ref,omitempty"`
	Entries       []AuditedEntry  `json:"entries"`
}

type accountPayload struct {
	AccountID string          `json:"account_id"`
	Currency  string          `json:"currency"`
	Status    AccountStatus   `json:"status"`
	Balance   int64           `json:"balance"`
	Reason    RejectionReason `json:"reason,omitempty"`
}

// NewTransactionAudit builds the audit record for a posting outcome, with the
// full entry set snapshotted into the payload.
func NewTransactionAudit(kind AuditKind, txn *Transaction, reason RejectionReason, now time.Time) (*AuditRecord, error) {
	payload := transactionPayload{
		TransactionID: txn.ID,
		Currency:      txn.Currency,
		Status:        string(txn.Status),
		Reason:        reason,
		ExternalRef:   txn.ExternalRef,
		Entries:       make([]AuditedEntry, 0, len(txn.Entries)),
	}

	for _, e := range txn.Entries {
		payload.Entries = append(payload.Entries, AuditedEntry{
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: e.Direction,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}

	return &AuditRecord{
		Kind:          kind,
		TransactionID: txn.ID,
		Reason:        reason,
		Payload:       string(raw),
		CreatedAt:     now,
	}, nil
}

// NewAccountAudit builds the audit record for an account lifecycle event.
func NewAccountAudit(kind AuditKind, account *Account, reason RejectionReason, now time.Time) (*AuditRecord, error) {
	raw, err := json.Marshal(accountPayload{
		AccountID: account.ID,
		Currency:  account.Currency,
		Status:    account.Status,
		Balance:   account.Balance,
		Reason:    reason,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}

	return &AuditRecord{
		Kind:      kind,
		AccountID: account.ID,
		Reason:    reason,
		Payload:   string(raw),
		CreatedAt: now,
	}, nil
}

// Entries decodes the entry snapshot from a transaction record's payload.
func (r *AuditRecord) Entries() ([]AuditedEntry, error) {
	var payload transactionPayload
	if err := json.Unmarshal([]byte(r.Payload), &payload); err != nil {
		return nil, fmt.Errorf("decode audit payload at seq %d: %w", r.Sequence, err)
	}

	return payload.Entries, nil
}

// ComputeHash derives the chain hash for a record. The hash covers the
// previous hash, the sequence number, the kind and the exact payload bytes;
// wall-clock time stays out of the hash so storage round-trips cannot break
// verification.
func (r *AuditRecord) ComputeHash(prevHash string) string {
	input := fmt.Sprintf("%s|%d|%s|%s", prevHash, r.Sequence, r.Kind, r.Payload)
	sum := sha256.Sum256([]byte(input))

	return hex.EncodeToString(sum[:])
}

// Chain links the record onto prevHash, filling PrevHash and Hash.
func (r *AuditRecord) Chain(prevHash string) {
	r.PrevHash = prevHash
	r.Hash = r.ComputeHash(prevHash)
}

// VerifyChain checks that records form an unbroken hash chain starting from
// prevHash and returns the hash of the last record, so callers can verify the
// log in restartable pages.
func VerifyChain(prevHash string, records []*AuditRecord) (string, error) {
	for _, rec := range records {
		if rec.PrevHash != prevHash {
			return "", fmt.Errorf("%w: seq %d links to %s, want %s", ErrAuditChainBroken, rec.Sequence, rec.PrevHash, prevHash)
		}

		if computed := rec.ComputeHash(prevHash); computed != rec.Hash {
			return "", fmt.Errorf("%w: seq %d hash mismatch", ErrAuditChainBroken, rec.Sequence)
		}

		prevHash = rec.Hash
	}

	return prevHash, nil
}
