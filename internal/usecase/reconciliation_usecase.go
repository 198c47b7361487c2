package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultline/ledgerd/internal/domain"
)

// ReconciliationUseCase independently recomputes balances from the audit log
// and flags drift against the materialized account rows. It is read-only by
// construction: reconciliation observes, it never repairs.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	auditRepo   AuditRepository
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(accountRepo AccountRepository, auditRepo AuditRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
	}
}

// AccountDrift compares one account's materialized balance with the balance
// replayed from the audit log. Display amounts are decimal strings in major
// units; the underlying arithmetic stays in integer minor units.
type AccountDrift struct {
	AccountID        string
	Currency         string
	RecordedBalance  int64
	ReplayedBalance  int64
	Drift            int64
	DisplayRecorded  decimal.Decimal
	DisplayReplayed  decimal.Decimal
	Reconciled       bool
	LastAuditApplied int64
}

// Report is a full reconciliation pass over the ledger.
type Report struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*AccountDrift
	ReplayedRecords    int64
	CheckedAt          time.Time
}

// ReconcileAll replays the entire audit log from empty state and compares
// every account. This is the canonical correctness check: the materialized
// balances must be reproducible from the log alone.
func (uc *ReconciliationUseCase) ReconcileAll(ctx context.Context) (*Report, error) {
	sums, replayed, lastSeq, err := uc.replayBalances(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ReplayedRecords: replayed,
		Discrepancies:   make([]*AccountDrift, 0),
		CheckedAt:       time.Now().UTC(),
	}

	offset := 0
	for {
		accounts, err := uc.accountRepo.List(ctx, MaxPageSize, offset)
		if err != nil {
			return nil, err
		}

		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			drift := uc.driftFor(account, sums[account.ID], lastSeq[account.ID])
			report.TotalAccounts++

			if drift.Reconciled {
				report.ReconciledAccounts++
			} else {
				report.Discrepancies = append(report.Discrepancies, drift)
			}

			delete(sums, account.ID)
		}

		offset += len(accounts)
	}

	// Entries in the log for accounts missing from the registry are drift
	// too: the log is the source of truth.
	for accountID, sum := range sums {
		if sum == 0 {
			continue
		}

		report.TotalAccounts++
		report.Discrepancies = append(report.Discrepancies, &AccountDrift{
			AccountID:       accountID,
			ReplayedBalance: sum,
			Drift:           -sum,
		})
	}

	return report, nil
}

// ReconcileAccount replays the audit log for a single account.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*AccountDrift, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sums, _, lastSeq, err := uc.replayBalances(ctx)
	if err != nil {
		return nil, err
	}

	return uc.driftFor(account, sums[accountID], lastSeq[accountID]), nil
}

// BalanceAtSequence reconstructs an account's balance as of a point in the
// audit log's total order, by replaying posted records up to and including
// seq.
func (uc *ReconciliationUseCase) BalanceAtSequence(ctx context.Context, accountID string, seq int64) (*BalanceView, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var balance int64

	from := int64(1)

	for from <= seq {
		records, err := uc.auditRepo.ReplayFrom(ctx, from, ReplayBatchSize)
		if err != nil {
			return nil, err
		}

		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if rec.Sequence > seq {
				break
			}

			if rec.Kind != domain.AuditTransactionPosted {
				continue
			}

			entries, err := rec.Entries()
			if err != nil {
				return nil, fmt.Errorf("replay seq %d: %w", rec.Sequence, err)
			}

			for _, e := range entries {
				if e.AccountID == accountID {
					balance += e.Amount
				}
			}
		}

		from = records[len(records)-1].Sequence + 1
	}

	return &BalanceView{
		AccountID:    accountID,
		Balance:      balance,
		Currency:     account.Currency,
		AsOfSequence: seq,
	}, nil
}

// replayBalances pages through the audit log from the beginning and
// accumulates the signed entry sums of every posted transaction.
func (uc *ReconciliationUseCase) replayBalances(ctx context.Context) (map[string]int64, int64, map[string]int64, error) {
	sums := make(map[string]int64)
	lastSeq := make(map[string]int64)

	var replayed int64

	from := int64(1)

	for {
		records, err := uc.auditRepo.ReplayFrom(ctx, from, ReplayBatchSize)
		if err != nil {
			return nil, 0, nil, err
		}

		if len(records) == 0 {
			return sums, replayed, lastSeq, nil
		}

		for _, rec := range records {
			replayed++

			if rec.Kind != domain.AuditTransactionPosted {
				continue
			}

			entries, err := rec.Entries()
			if err != nil {
				return nil, 0, nil, fmt.Errorf("replay seq %d: %w", rec.Sequence, err)
			}

			for _, e := range entries {
				sums[e.AccountID] += e.Amount
				lastSeq[e.AccountID] = rec.Sequence
			}
		}

		from = records[len(records)-1].Sequence + 1
	}
}

func (uc *ReconciliationUseCase) driftFor(account *domain.Account, replayed, lastSeq int64) *AccountDrift {
	exp := domain.MinorUnitExponent(account.Currency)

	return &AccountDrift{
		AccountID:        account.ID,
		Currency:         account.Currency,
		RecordedBalance:  account.Balance,
		ReplayedBalance:  replayed,
		Drift:            account.Balance - replayed,
		DisplayRecorded:  decimal.New(account.Balance, -exp),
		DisplayReplayed:  decimal.New(replayed, -exp),
		Reconciled:       account.Balance == replayed,
		LastAuditApplied: lastSeq,
	}
}
