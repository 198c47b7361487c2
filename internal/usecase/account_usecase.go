package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
)

// AccountUseCase is the account registry: it owns account identity, currency
// and lifecycle. Balance mutation belongs to the posting engine alone.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
	}
}

// CreateAccount creates a new active account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, currency string) (*domain.Account, error) {
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Currency:  domain.NormalizeCurrency(currency),
		Status:    domain.AccountStatusActive,
		Balance:   0,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, err
	}

	rec, err := domain.NewAccountAudit(domain.AuditAccountCreated, account, "", now)
	if err != nil {
		return nil, err
	}

	if err := uc.auditRepo.AppendTx(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

// FreezeAccount transitions an account to frozen. Frozen accounts reject new
// postings but keep their balance and history.
func (uc *AccountUseCase) FreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.transition(ctx, id, domain.AuditAccountFrozen, func(a *domain.Account) error {
		return a.Freeze()
	})
}

// CloseAccount closes a zero-balance account. Non-zero balances are refused
// and the refused attempt is audit-logged.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.transition(ctx, id, domain.AuditAccountClosed, func(a *domain.Account) error {
		return a.Close()
	})
	if errors.Is(err, domain.ErrNonZeroBalanceOnClose) {
		uc.auditCloseDenied(ctx, id)
	}

	return account, err
}

// transition applies a status change under the account's row lock so it
// serializes against in-flight postings, and audit-logs the change in the
// same atomic unit.
func (uc *AccountUseCase) transition(ctx context.Context, id string, kind domain.AuditKind, apply func(*domain.Account) error) (*domain.Account, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	before := account.Status
	if err := apply(account); err != nil {
		return nil, err
	}

	if account.Status == before {
		// No-op transition, nothing to persist.
		return account, nil
	}

	now := time.Now().UTC()
	if err := uc.accountRepo.UpdateStatus(ctx, tx, id, account.Status, now); err != nil {
		return nil, err
	}

	rec, err := domain.NewAccountAudit(kind, account, "", now)
	if err != nil {
		return nil, err
	}

	if err := uc.auditRepo.AppendTx(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

func (uc *AccountUseCase) auditCloseDenied(ctx context.Context, id string) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return
	}

	rec, err := domain.NewAccountAudit(domain.AuditAccountCloseDenied, account, domain.ReasonNonZeroBalanceOnClose, time.Now().UTC())
	if err != nil {
		return
	}

	_ = uc.auditRepo.Append(ctx, rec)
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if offset < 0 {
		offset = 0
	}

	return uc.accountRepo.List(ctx, clampLimit(limit), offset)
}

// BalanceView is the balance projection: an O(1) read of the materialized
// account row, stamped with the audit sequence it reflects.
type BalanceView struct {
	AccountID    string
	Balance      int64
	Currency     string
	AsOfSequence int64
}

// GetBalance returns the current balance projection for an account.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id string) (*BalanceView, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &BalanceView{
		AccountID:    account.ID,
		Balance:      account.Balance,
		Currency:     account.Currency,
		AsOfSequence: account.LastSequence,
	}, nil
}
