package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// reconFixture posts real transactions through the posting engine so the
// audit log and the materialized balances come from the same machinery the
// production path uses.
type reconFixture struct {
	posting *postingFixture
	uc      *usecase.ReconciliationUseCase
}

func newReconFixture() *reconFixture {
	posting := newPostingFixture(usecase.PostingConfig{})

	return &reconFixture{
		posting: posting,
		uc:      usecase.NewReconciliationUseCase(posting.accountRepo, posting.auditRepo),
	}
}

func (f *reconFixture) post(t *testing.T, key, from, to string, amount int64) {
	t.Helper()

	_, err := f.posting.uc.Submit(context.Background(), usecase.PostTransactionInput{
		IdempotencyKey: key,
		Currency:       "USD",
		Entries:        transfer(from, to, amount),
	})
	if err != nil {
		t.Fatalf("post %s: %v", key, err)
	}
}

func TestReconcileAll_ReplayMatchesBalances(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)
	f.posting.seedAccount("acc-c", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 500)
	f.post(t, "k2", "acc-b", "acc-c", 200)
	f.post(t, "k3", "acc-a", "acc-c", 100)

	report, err := f.uc.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if report.TotalAccounts != 3 {
		t.Errorf("total accounts = %d, want 3", report.TotalAccounts)
	}
	if report.ReconciledAccounts != 3 {
		t.Errorf("reconciled = %d, want 3", report.ReconciledAccounts)
	}
	if len(report.Discrepancies) != 0 {
		t.Errorf("discrepancies = %+v, want none", report.Discrepancies)
	}
	if report.ReplayedRecords != 3 {
		t.Errorf("replayed records = %d, want 3", report.ReplayedRecords)
	}
}

func TestReconcileAll_RejectionsDoNotAffectReplay(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 1000)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 300)

	_, err := f.posting.uc.Submit(context.Background(), usecase.PostTransactionInput{
		IdempotencyKey: "k-bad",
		Currency:       "USD",
		Entries: []domain.EntryInput{
			{AccountID: "acc-a", Amount: -100, Direction: domain.DirectionDebit},
			{AccountID: "acc-b", Amount: 50, Direction: domain.DirectionCredit},
		},
	})
	if _, ok := domain.AsRejection(err); !ok {
		t.Fatalf("expected rejection, got %v", err)
	}

	report, err := f.uc.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// The rejected attempt is in the log but carries no balance effect.
	if report.ReplayedRecords != 2 {
		t.Errorf("replayed records = %d, want 2", report.ReplayedRecords)
	}
	if len(report.Discrepancies) != 0 {
		t.Errorf("discrepancies = %+v, want none", report.Discrepancies)
	}
}

func TestReconcileAll_DetectsDrift(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 500)

	// Corrupt the materialized balance behind the log's back.
	f.posting.accountRepo.Seed(&domain.Account{
		ID:       "acc-b",
		Currency: "USD",
		Status:   domain.AccountStatusActive,
		Balance:  9999,
	})

	report, err := f.uc.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(report.Discrepancies) != 1 {
		t.Fatalf("discrepancies = %d, want 1", len(report.Discrepancies))
	}

	drift := report.Discrepancies[0]
	if drift.AccountID != "acc-b" {
		t.Errorf("drift account = %s, want acc-b", drift.AccountID)
	}
	if drift.RecordedBalance != 9999 || drift.ReplayedBalance != 500 {
		t.Errorf("recorded = %d replayed = %d, want 9999 and 500", drift.RecordedBalance, drift.ReplayedBalance)
	}
	if drift.Drift != 9499 {
		t.Errorf("drift = %d, want 9499", drift.Drift)
	}
	if drift.DisplayRecorded.String() != "99.99" {
		t.Errorf("display recorded = %s, want 99.99", drift.DisplayRecorded)
	}
}

func TestReconcileAccount(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 750)

	drift, err := f.uc.ReconcileAccount(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile account: %v", err)
	}

	if !drift.Reconciled {
		t.Errorf("drift = %+v, want reconciled", drift)
	}
	if drift.ReplayedBalance != 750 {
		t.Errorf("replayed = %d, want 750", drift.ReplayedBalance)
	}
	if drift.LastAuditApplied == 0 {
		t.Error("last audit applied = 0, want the posting's sequence")
	}
}

func TestReconcileAccount_NotFound(t *testing.T) {
	f := newReconFixture()

	_, err := f.uc.ReconcileAccount(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestBalanceAtSequence(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 500)
	f.post(t, "k2", "acc-b", "acc-a", 200)
	f.post(t, "k3", "acc-a", "acc-b", 100)

	// After the first posting only, acc-b held 500.
	view, err := f.uc.BalanceAtSequence(context.Background(), "acc-b", 1)
	if err != nil {
		t.Fatalf("balance at sequence: %v", err)
	}
	if view.Balance != 500 {
		t.Errorf("balance at seq 1 = %d, want 500", view.Balance)
	}
	if view.AsOfSequence != 1 {
		t.Errorf("as-of sequence = %d, want 1", view.AsOfSequence)
	}

	view, err = f.uc.BalanceAtSequence(context.Background(), "acc-b", 3)
	if err != nil {
		t.Fatalf("balance at sequence: %v", err)
	}
	if view.Balance != 400 {
		t.Errorf("balance at seq 3 = %d, want 400", view.Balance)
	}
}

func TestBalanceAtSequence_BeforeFirstRecord(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 500)

	view, err := f.uc.BalanceAtSequence(context.Background(), "acc-b", 0)
	if err != nil {
		t.Fatalf("balance at sequence: %v", err)
	}
	if view.Balance != 0 {
		t.Errorf("balance at seq 0 = %d, want 0", view.Balance)
	}
}

func TestBalanceAtSequence_UnknownAccount(t *testing.T) {
	f := newReconFixture()

	_, err := f.uc.BalanceAtSequence(context.Background(), "missing", 5)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestReconcileAll_FlagsOrphanLogEntries(t *testing.T) {
	f := newReconFixture()
	f.posting.seedAccount("acc-a", "USD", 0)
	f.posting.seedAccount("acc-b", "USD", 0)

	f.post(t, "k1", "acc-a", "acc-b", 100)

	// An audit record naming an account the registry has never seen.
	orphan := &domain.Transaction{
		ID:       "txn-orphan",
		Currency: "USD",
		Status:   domain.TransactionStatusPosted,
		Entries: []*domain.Entry{
			{AccountID: "acc-ghost", Amount: 40, Direction: domain.DirectionCredit},
			{AccountID: "acc-a", Amount: -40, Direction: domain.DirectionDebit},
		},
	}

	rec, err := domain.NewTransactionAudit(domain.AuditTransactionPosted, orphan, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("build orphan record: %v", err)
	}
	if err := f.posting.auditRepo.Append(context.Background(), rec); err != nil {
		t.Fatalf("append orphan: %v", err)
	}

	report, err := f.uc.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var ghost *usecase.AccountDrift
	for _, d := range report.Discrepancies {
		if d.AccountID == "acc-ghost" {
			ghost = d
		}
	}

	if ghost == nil {
		t.Fatalf("discrepancies = %+v, want one for acc-ghost", report.Discrepancies)
	}
	if ghost.ReplayedBalance != 40 {
		t.Errorf("ghost replayed = %d, want 40", ghost.ReplayedBalance)
	}
}
