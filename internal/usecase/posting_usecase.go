package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vaultline/ledgerd/internal/domain"
)

// PostingConfig tunes the posting engine.
type PostingConfig struct {
	LockTimeout       time.Duration
	IdempotencyTTL    time.Duration
	SubmitWaitTimeout time.Duration
	Validation        domain.ValidationOptions
}

func (c PostingConfig) withDefaults() PostingConfig {
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}

	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = DefaultIdempotencyTTL
	}

	if c.SubmitWaitTimeout <= 0 {
		c.SubmitWaitTimeout = DefaultSubmitWaitTimeout
	}

	return c
}

// PostingUseCase is the transactional core: it applies a validated entry set
// atomically, updates balances under per-account row locks taken in canonical
// order, appends the audit record in the same unit, and serializes duplicate
// submissions onto one winner per idempotency key.
type PostingUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	auditRepo   AuditRepository
	idemStore   IdempotencyStore
	idGen       IDGenerator
	retrier     Retrier
	cfg         PostingConfig
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	auditRepo AuditRepository,
	idemStore IdempotencyStore,
	idGen IDGenerator,
	retrier Retrier,
	cfg PostingConfig,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		auditRepo:   auditRepo,
		idemStore:   idemStore,
		idGen:       idGen,
		retrier:     retrier,
		cfg:         cfg.withDefaults(),
	}
}

// PostTransactionInput represents a posting request.
type PostTransactionInput struct {
	IdempotencyKey string
	Currency       string
	ExternalRef    *string
	Entries        []domain.EntryInput
}

// PostResult is the outcome of a successful posting. Replayed marks outcomes
// served from the idempotency store instead of a fresh posting.
type PostResult struct {
	Transaction *domain.Transaction
	Replayed    bool
}

// Outcome is the stored shape of a posting result, cached per idempotency key
// so retries replay the identical answer.
type Outcome struct {
	TransactionID string                   `json:"transaction_id"`
	Status        domain.TransactionStatus `json:"status"`
	Reason        domain.RejectionReason   `json:"reason,omitempty"`
	Detail        string                   `json:"detail,omitempty"`
}

// Submit posts a transaction with at-most-one-effect semantics. Replays of a
// key within its retention window return the stored outcome without
// re-validation; concurrent duplicates wait for the claim winner.
func (uc *PostingUseCase) Submit(ctx context.Context, input PostTransactionInput) (*PostResult, error) {
	if input.IdempotencyKey == "" {
		return nil, domain.ErrIdempotencyKeyRequired
	}

	for {
		claimed, cached, err := uc.idemStore.Claim(ctx, input.IdempotencyKey, uc.cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency claim: %w", err)
		}

		if claimed {
			return uc.postAndStore(ctx, input)
		}

		if cached != nil {
			return uc.replay(ctx, cached)
		}

		outcome, err := uc.awaitOutcome(ctx, input.IdempotencyKey)
		if errors.Is(err, domain.ErrTransactionNotFound) {
			// The winner released its claim without an outcome; race again.
			continue
		}

		if errors.Is(err, domain.ErrPostingInFlight) {
			return uc.resolveStalledClaim(ctx, input.IdempotencyKey)
		}

		if err != nil {
			return nil, err
		}

		return uc.replay(ctx, outcome)
	}
}

// resolveStalledClaim handles a winner that committed its posting but died
// before replacing the in-flight marker with the outcome. The marker would
// otherwise pin waiters to ErrPostingInFlight until it expires, so the
// durable idempotency-key column gets the final word.
func (uc *PostingUseCase) resolveStalledClaim(ctx context.Context, key string) (*PostResult, error) {
	txn, err := uc.txnRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, domain.ErrPostingInFlight
	}

	if err != nil {
		return nil, err
	}

	// Heal the cache so later retries replay without waiting out the marker.
	uc.storeOutcome(ctx, key, Outcome{
		TransactionID: txn.ID,
		Status:        domain.TransactionStatusPosted,
	})

	return &PostResult{Transaction: txn, Replayed: true}, nil
}

// GetTransaction retrieves a transaction with its entries.
func (uc *PostingUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txnRepo.GetByID(ctx, id)
}

func (uc *PostingUseCase) postAndStore(ctx context.Context, input PostTransactionInput) (*PostResult, error) {
	result, err := uc.post(ctx, input)
	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			uc.storeOutcome(ctx, input.IdempotencyKey, Outcome{
				TransactionID: rej.TransactionID,
				Status:        domain.TransactionStatusRejected,
				Reason:        rej.Reason,
				Detail:        rej.Detail,
			})

			return nil, rej
		}

		// Lock timeouts and storage failures have no durable effect; drop
		// the claim so the caller can safely retry with the same key.
		if relErr := uc.idemStore.Release(ctx, input.IdempotencyKey); relErr != nil {
			return nil, errors.Join(err, fmt.Errorf("release idempotency claim: %w", relErr))
		}

		return nil, err
	}

	uc.storeOutcome(ctx, input.IdempotencyKey, Outcome{
		TransactionID: result.Transaction.ID,
		Status:        domain.TransactionStatusPosted,
	})

	return result, nil
}

// storeOutcome caches the outcome under the key. Failures are swallowed: the
// posted transaction is already durable and the unique idempotency-key column
// resolves replays even when the cache is lost.
func (uc *PostingUseCase) storeOutcome(ctx context.Context, key string, outcome Outcome) {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}

	_ = uc.idemStore.Store(ctx, key, raw, uc.cfg.IdempotencyTTL)
}

func (uc *PostingUseCase) replay(ctx context.Context, raw []byte) (*PostResult, error) {
	var outcome Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, fmt.Errorf("decode stored outcome: %w", err)
	}

	if outcome.Status == domain.TransactionStatusRejected {
		return nil, &domain.Rejection{
			Reason:        outcome.Reason,
			Detail:        outcome.Detail,
			TransactionID: outcome.TransactionID,
		}
	}

	txn, err := uc.txnRepo.GetByID(ctx, outcome.TransactionID)
	if err != nil {
		return nil, err
	}

	return &PostResult{Transaction: txn, Replayed: true}, nil
}

func (uc *PostingUseCase) awaitOutcome(ctx context.Context, key string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 25 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = uc.cfg.SubmitWaitTimeout

	var outcome []byte

	err := backoff.Retry(func() error {
		raw, err := uc.idemStore.Get(ctx, key)
		if errors.Is(err, ErrOutcomePending) {
			return err
		}

		if err != nil {
			return backoff.Permanent(err)
		}

		outcome = raw

		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		if errors.Is(err, ErrOutcomePending) {
			return nil, domain.ErrPostingInFlight
		}

		return nil, err
	}

	return outcome, nil
}

// post runs the posting algorithm: pre-validate against committed state, then
// lock, re-validate and apply inside one database transaction. Transient
// storage conflicts are retried; rejections and lock timeouts are not.
func (uc *PostingUseCase) post(ctx context.Context, input PostTransactionInput) (*PostResult, error) {
	ids := sortedUniqueAccountIDs(input.Entries)

	// Pre-validation over committed state. Cheap rejections never take locks.
	accounts, err := uc.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if rej := domain.ValidateEntrySet(input.Currency, input.Entries, accountMap(accounts), uc.cfg.Validation); rej != nil {
		return nil, uc.recordRejection(ctx, input, rej)
	}

	var result *PostResult

	err = uc.retrier.Retry(ctx, func() error {
		r, err := uc.postOnce(ctx, input, ids)
		if err != nil {
			return err
		}

		result = r

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *PostingUseCase) postOnce(ctx context.Context, input PostTransactionInput, ids []string) (*PostResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock acquisition is bounded: expiry aborts with no side effects and
	// the caller can retry under the same idempotency key.
	lockCtx, cancel := context.WithTimeout(ctx, uc.cfg.LockTimeout)
	defer cancel()

	accounts, err := uc.accountRepo.GetByIDsForUpdate(lockCtx, tx, ids)
	if err != nil {
		if lockCtx.Err() != nil && ctx.Err() == nil {
			return nil, domain.ErrLockTimeout
		}

		return nil, err
	}

	locked := accountMap(accounts)

	// Re-validate under lock: a concurrent freeze or close between
	// pre-validation and lock acquisition must reject the posting.
	if rej := domain.ValidateEntrySet(input.Currency, input.Entries, locked, uc.cfg.Validation); rej != nil {
		_ = tx.Rollback(ctx)

		return nil, uc.recordRejection(ctx, input, rej)
	}

	now := time.Now().UTC()

	txn := &domain.Transaction{
		ID:             uc.idGen.Generate(),
		Currency:       domain.NormalizeCurrency(input.Currency),
		Status:         domain.TransactionStatusPosted,
		IdempotencyKey: input.IdempotencyKey,
		ExternalRef:    input.ExternalRef,
		CreatedAt:      now,
	}

	for _, e := range input.Entries {
		account := locked[e.AccountID]
		newBalance := account.Apply(e.Amount)

		txn.Entries = append(txn.Entries, &domain.Entry{
			ID:              uc.idGen.Generate(),
			TransactionID:   txn.ID,
			AccountID:       account.ID,
			Amount:          e.Amount,
			Direction:       e.Direction,
			PreviousBalance: account.Balance,
			CurrentBalance:  newBalance,
			AccountVersion:  account.Version + 1,
			CreatedAt:       now,
		})

		account.Balance = newBalance
		account.Version++
	}

	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyReused) {
			_ = tx.Rollback(ctx)

			return uc.resolveDuplicateKey(ctx, input.IdempotencyKey)
		}

		return nil, err
	}

	rec, err := domain.NewTransactionAudit(domain.AuditTransactionPosted, txn, "", now)
	if err != nil {
		return nil, err
	}

	if err := uc.auditRepo.AppendTx(ctx, tx, rec); err != nil {
		return nil, err
	}

	for _, id := range ids {
		account := locked[id]
		if err := uc.accountRepo.ApplyPosting(ctx, tx, id, account.Balance, account.Version, rec.Sequence, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &PostResult{Transaction: txn}, nil
}

// resolveDuplicateKey handles the durable at-most-once backstop: the unique
// idempotency-key column caught a duplicate the cache had forgotten.
func (uc *PostingUseCase) resolveDuplicateKey(ctx context.Context, key string) (*PostResult, error) {
	existing, err := uc.txnRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}

	return &PostResult{Transaction: existing, Replayed: true}, nil
}

// recordRejection durably audits a rejected attempt, then returns the
// rejection. Rejected postings never touch balances; they exist only as
// audit history and a cached outcome.
func (uc *PostingUseCase) recordRejection(ctx context.Context, input PostTransactionInput, rej *domain.Rejection) error {
	now := time.Now().UTC()

	txn := &domain.Transaction{
		ID:             uc.idGen.Generate(),
		Currency:       domain.NormalizeCurrency(input.Currency),
		Status:         domain.TransactionStatusRejected,
		IdempotencyKey: input.IdempotencyKey,
		ExternalRef:    input.ExternalRef,
		CreatedAt:      now,
	}

	for _, e := range input.Entries {
		txn.Entries = append(txn.Entries, &domain.Entry{
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: e.Direction,
		})
	}

	rec, err := domain.NewTransactionAudit(domain.AuditTransactionRejected, txn, rej.Reason, now)
	if err != nil {
		return err
	}

	if err := uc.auditRepo.Append(ctx, rec); err != nil {
		return fmt.Errorf("audit rejected posting: %w", err)
	}

	rej.TransactionID = txn.ID

	return rej
}

func sortedUniqueAccountIDs(entries []domain.EntryInput) []string {
	seen := make(map[string]bool, len(entries))

	var ids []string
	for _, e := range entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}

	sort.Strings(ids)

	return ids
}

func accountMap(accounts []*domain.Account) map[string]*domain.Account {
	m := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}

	return m
}
