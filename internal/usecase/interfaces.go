package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	// GetByIDsForUpdate locks the account rows in the order given. Callers
	// must pass IDs sorted canonically so concurrent postings over
	// overlapping account sets can never deadlock.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// ApplyPosting persists the balance, version and last audit sequence
	// produced by the posting engine's locked section.
	ApplyPosting(ctx context.Context, tx Transaction, id string, balance, version, lastSequence int64, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository defines data access for transactions and entries.
type TransactionRepository interface {
	// Create persists a transaction and all its entries. Returns
	// domain.ErrIdempotencyKeyReused when the idempotency key is already
	// bound to another transaction.
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// AuditRepository defines the append-only audit log. Appends assign the
// sequence number and extend the hash chain; there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
	AppendTx(ctx context.Context, tx Transaction, rec *domain.AuditRecord) error
	ReplayFrom(ctx context.Context, fromSequence int64, limit int) ([]*domain.AuditRecord, error)
}

// LedgerRepository defines ledger-wide aggregate queries.
type LedgerRepository interface {
	// SumBalancesAndEntries returns the sum of all account balances and the
	// sum of all posted entry amounts; both are zero in a consistent ledger.
	SumBalancesAndEntries(ctx context.Context) (totalBalance, totalEntries int64, err error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique, time-ordered IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// ErrOutcomePending signals that an idempotency key is claimed but its
// outcome has not been stored yet.
var ErrOutcomePending = errors.New("idempotency outcome pending")

// IdempotencyStore maps an idempotency key to the outcome of the posting it
// produced, for the retention window.
type IdempotencyStore interface {
	// Claim atomically claims key for the caller. claimed is true when this
	// caller won the single-writer race; otherwise outcome holds the stored
	// result when the winner has already finished, or nil while in flight.
	Claim(ctx context.Context, key string, ttl time.Duration) (claimed bool, outcome []byte, err error)
	// Get returns the stored outcome, ErrOutcomePending while the winner is
	// still posting, or domain.ErrTransactionNotFound when the key is gone.
	Get(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, outcome []byte, ttl time.Duration) error
	// Release drops a claim whose posting failed, so a retry can claim again.
	Release(ctx context.Context, key string) error
}

// Cache defines caching operations for immutable reads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
