package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
	"github.com/vaultline/ledgerd/internal/usecase/mocks"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name         string
		totalBalance int64
		totalEntries int64
		consistent   bool
	}{
		{name: "zero sums", totalBalance: 0, totalEntries: 0, consistent: true},
		{name: "balance drift", totalBalance: 37, totalEntries: 0, consistent: false},
		{name: "entry drift", totalBalance: 0, totalEntries: -5, consistent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerRepo := mocks.NewMockLedgerRepository()
			ledgerRepo.TotalBalance = tt.totalBalance
			ledgerRepo.TotalEntries = tt.totalEntries

			uc := usecase.NewLedgerUseCase(mocks.NewMockTransactionRepository(), ledgerRepo, nil)

			result, err := uc.CheckConsistency(context.Background())
			if tt.consistent {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !result.Consistent {
					t.Error("result not marked consistent")
				}
				return
			}

			if !errors.Is(err, usecase.ErrInconsistentLedger) {
				t.Fatalf("err = %v, want ErrInconsistentLedger", err)
			}
			if result == nil || result.Consistent {
				t.Errorf("result = %+v, want inconsistent", result)
			}
		})
	}
}

func TestLedgerUseCase_GetTransaction_CachesPosted(t *testing.T) {
	txnRepo := mocks.NewMockTransactionRepository()
	cache := mocks.NewMockCache()
	uc := usecase.NewLedgerUseCase(txnRepo, mocks.NewMockLedgerRepository(), cache)

	txn := &domain.Transaction{
		ID:             "txn-1",
		Currency:       "USD",
		Status:         domain.TransactionStatusPosted,
		IdempotencyKey: "k1",
	}
	if err := txnRepo.Create(context.Background(), nil, txn); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := uc.GetTransaction(context.Background(), "txn-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.ID != "txn-1" {
		t.Errorf("id = %s, want txn-1", first.ID)
	}

	// A second read is served from the cache even if the repo forgets it.
	stale := mocks.NewMockTransactionRepository()
	uc2 := usecase.NewLedgerUseCase(stale, mocks.NewMockLedgerRepository(), cache)

	second, err := uc2.GetTransaction(context.Background(), "txn-1")
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if second.ID != "txn-1" || second.Status != domain.TransactionStatusPosted {
		t.Errorf("cached transaction = %+v", second)
	}
}

func TestLedgerUseCase_GetTransaction_NotFound(t *testing.T) {
	uc := usecase.NewLedgerUseCase(mocks.NewMockTransactionRepository(), mocks.NewMockLedgerRepository(), nil)

	_, err := uc.GetTransaction(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestLedgerUseCase_ListEntriesByAccount(t *testing.T) {
	txnRepo := mocks.NewMockTransactionRepository()
	uc := usecase.NewLedgerUseCase(txnRepo, mocks.NewMockLedgerRepository(), nil)

	txn := &domain.Transaction{
		ID:             "txn-1",
		Status:         domain.TransactionStatusPosted,
		IdempotencyKey: "k1",
		Entries: []*domain.Entry{
			{ID: "e1", TransactionID: "txn-1", AccountID: "acc-a", Amount: -100, Direction: domain.DirectionDebit},
			{ID: "e2", TransactionID: "txn-1", AccountID: "acc-b", Amount: 100, Direction: domain.DirectionCredit},
		},
	}
	if err := txnRepo.Create(context.Background(), nil, txn); err != nil {
		t.Fatalf("seed: %v", err)
	}

	entries, err := uc.ListEntriesByAccount(context.Background(), "acc-a", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].AccountID != "acc-a" {
		t.Errorf("entries = %+v, want one entry for acc-a", entries)
	}
}
