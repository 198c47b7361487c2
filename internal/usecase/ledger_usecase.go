package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
)

// ErrInconsistentLedger is returned when balances and entries disagree.
var ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match posted entries")

const transactionCacheTTL = time.Hour

// LedgerUseCase serves read paths over posted state: transactions, entries
// and the ledger-wide consistency check.
type LedgerUseCase struct {
	txnRepo    TransactionRepository
	ledgerRepo LedgerRepository
	cache      Cache
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(txnRepo TransactionRepository, ledgerRepo LedgerRepository, cache Cache) *LedgerUseCase {
	return &LedgerUseCase{
		txnRepo:    txnRepo,
		ledgerRepo: ledgerRepo,
		cache:      cache,
	}
}

type cachedTransaction struct {
	Transaction *domain.Transaction `json:"transaction"`
}

// GetTransaction retrieves a transaction with its entries. Posted
// transactions are immutable, so cache hits can never serve stale data.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, transactionCacheKey(id)); err == nil && raw != nil {
			var cached cachedTransaction
			if err := json.Unmarshal(raw, &cached); err == nil && cached.Transaction != nil {
				return cached.Transaction, nil
			}
		}
	}

	txn, err := uc.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && txn.Status == domain.TransactionStatusPosted {
		if raw, err := json.Marshal(cachedTransaction{Transaction: txn}); err == nil {
			_ = uc.cache.Set(ctx, transactionCacheKey(id), raw, transactionCacheTTL)
		}
	}

	return txn, nil
}

// ListEntriesByAccount lists posted entries for an account.
func (uc *LedgerUseCase) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if offset < 0 {
		offset = 0
	}

	return uc.txnRepo.ListEntriesByAccount(ctx, accountID, clampLimit(limit), offset)
}

// ConsistencyResult is the outcome of the ledger-wide zero-sum check.
type ConsistencyResult struct {
	Consistent   bool
	TotalBalance int64
	TotalEntries int64
	CheckedAt    time.Time
}

// CheckConsistency verifies the closed-system double-entry invariant: the
// sum of all balances and the sum of all posted entry amounts are both zero.
// External value enters through counterparty accounts, so the ledger as a
// whole never creates or destroys money.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyResult, error) {
	totalBalance, totalEntries, err := uc.ledgerRepo.SumBalancesAndEntries(ctx)
	if err != nil {
		return nil, err
	}

	result := &ConsistencyResult{
		Consistent:   totalBalance == 0 && totalEntries == 0,
		TotalBalance: totalBalance,
		TotalEntries: totalEntries,
		CheckedAt:    time.Now().UTC(),
	}

	if !result.Consistent {
		return result, ErrInconsistentLedger
	}

	return result, nil
}

func transactionCacheKey(id string) string {
	return "txn:" + id
}
