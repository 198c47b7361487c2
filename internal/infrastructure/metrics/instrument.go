package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// InstrumentedPosting wraps a posting engine and records posting metrics.
type InstrumentedPosting struct {
	next *usecase.PostingUseCase
	m    *Metrics
}

// InstrumentPosting wraps uc with metric recording.
func (m *Metrics) InstrumentPosting(uc *usecase.PostingUseCase) *InstrumentedPosting {
	return &InstrumentedPosting{next: uc, m: m}
}

// Submit forwards to the posting engine and records the outcome.
func (p *InstrumentedPosting) Submit(ctx context.Context, input usecase.PostTransactionInput) (*usecase.PostResult, error) {
	start := time.Now()
	result, err := p.next.Submit(ctx, input)
	p.m.PostingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			p.m.PostingsRejected.WithLabelValues(string(rej.Reason)).Inc()
			p.m.AuditRecords.WithLabelValues(string(domain.AuditTransactionRejected)).Inc()
		}

		if errors.Is(err, domain.ErrLockTimeout) {
			p.m.LockTimeouts.Inc()
		}

		return nil, err
	}

	if result.Replayed {
		p.m.PostingsReplayed.Inc()
	} else {
		p.m.PostingsPosted.Inc()
		p.m.AuditRecords.WithLabelValues(string(domain.AuditTransactionPosted)).Inc()
	}

	return result, nil
}

// InstrumentedAccounts wraps the account registry and records lifecycle
// metrics.
type InstrumentedAccounts struct {
	next *usecase.AccountUseCase
	m    *Metrics
}

// InstrumentAccounts wraps uc with metric recording.
func (m *Metrics) InstrumentAccounts(uc *usecase.AccountUseCase) *InstrumentedAccounts {
	return &InstrumentedAccounts{next: uc, m: m}
}

func (a *InstrumentedAccounts) CreateAccount(ctx context.Context, currency string) (*domain.Account, error) {
	account, err := a.next.CreateAccount(ctx, currency)
	if err == nil {
		a.m.AccountsCreated.Inc()
		a.m.AccountOperations.WithLabelValues("create").Inc()
		a.m.AuditRecords.WithLabelValues(string(domain.AuditAccountCreated)).Inc()
	}

	return account, err
}

func (a *InstrumentedAccounts) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return a.next.GetAccount(ctx, id)
}

func (a *InstrumentedAccounts) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return a.next.ListAccounts(ctx, limit, offset)
}

func (a *InstrumentedAccounts) FreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := a.next.FreezeAccount(ctx, id)
	if err == nil {
		a.m.AccountOperations.WithLabelValues("freeze").Inc()
	}

	return account, err
}

func (a *InstrumentedAccounts) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := a.next.CloseAccount(ctx, id)
	if err == nil {
		a.m.AccountOperations.WithLabelValues("close").Inc()
	}

	return account, err
}

func (a *InstrumentedAccounts) GetBalance(ctx context.Context, id string) (*usecase.BalanceView, error) {
	return a.next.GetBalance(ctx, id)
}

// InstrumentedAudit wraps the audit use case and records chain metrics.
type InstrumentedAudit struct {
	next *usecase.AuditUseCase
	m    *Metrics
}

// InstrumentAudit wraps uc with metric recording.
func (m *Metrics) InstrumentAudit(uc *usecase.AuditUseCase) *InstrumentedAudit {
	return &InstrumentedAudit{next: uc, m: m}
}

func (a *InstrumentedAudit) List(ctx context.Context, fromSequence int64, limit int) ([]*domain.AuditRecord, error) {
	return a.next.List(ctx, fromSequence, limit)
}

func (a *InstrumentedAudit) VerifyChain(ctx context.Context) (*usecase.ChainReport, error) {
	report, err := a.next.VerifyChain(ctx)
	if err != nil {
		a.m.ChainVerifyErrors.Inc()
		return report, err
	}

	a.m.AuditChainLength.Set(float64(report.Records))

	return report, nil
}

// InstrumentedReconciliation wraps reconciliation and records drift metrics.
type InstrumentedReconciliation struct {
	next *usecase.ReconciliationUseCase
	m    *Metrics
}

// InstrumentReconciliation wraps uc with metric recording.
func (m *Metrics) InstrumentReconciliation(uc *usecase.ReconciliationUseCase) *InstrumentedReconciliation {
	return &InstrumentedReconciliation{next: uc, m: m}
}

func (r *InstrumentedReconciliation) ReconcileAll(ctx context.Context) (*usecase.Report, error) {
	report, err := r.next.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}

	r.m.ReconciliationRuns.Inc()
	r.m.ReconciliationDrift.Set(float64(len(report.Discrepancies)))
	r.m.ReconciliationRecords.Add(float64(report.ReplayedRecords))

	return report, nil
}

func (r *InstrumentedReconciliation) ReconcileAccount(ctx context.Context, accountID string) (*usecase.AccountDrift, error) {
	return r.next.ReconcileAccount(ctx, accountID)
}

func (r *InstrumentedReconciliation) BalanceAtSequence(ctx context.Context, accountID string, seq int64) (*usecase.BalanceView, error) {
	return r.next.BalanceAtSequence(ctx, accountID, seq)
}
