package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create persists a transaction and its entries atomically. The unique index
// on idempotency_key is the durable at-most-once guard; a conflict surfaces
// as domain.ErrIdempotencyKeyReused.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO transactions (id, currency, status, idempotency_key, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := pgxTx.Exec(ctx, query,
		txn.ID,
		txn.Currency,
		txn.Status,
		txn.IdempotencyKey,
		txn.ExternalRef,
		txn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrIdempotencyKeyReused
		}

		return err
	}

	entryQuery := `
		INSERT INTO entries (
			id, transaction_id, account_id, amount, direction,
			previous_balance, current_balance, account_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, e := range txn.Entries {
		_, err := pgxTx.Exec(ctx, entryQuery,
			e.ID,
			e.TransactionID,
			e.AccountID,
			e.Amount,
			e.Direction,
			e.PreviousBalance,
			e.CurrentBalance,
			e.AccountVersion,
			e.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, currency, status, idempotency_key, external_ref, created_at
		FROM transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadEntries(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// GetByIdempotencyKey retrieves the transaction bound to an idempotency key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `
		SELECT id, currency, status, idempotency_key, external_ref, created_at
		FROM transactions
		WHERE idempotency_key = $1
	`

	txn, err := scanTransaction(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		return nil, err
	}

	if err := r.loadEntries(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// ListEntriesByAccount lists an account's posted entries, oldest first.
func (r *TransactionRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT id, transaction_id, account_id, amount, direction,
		       previous_balance, current_balance, account_version, created_at
		FROM entries
		WHERE account_id = $1
		ORDER BY account_version
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *TransactionRepository) loadEntries(ctx context.Context, txn *domain.Transaction) error {
	query := `
		SELECT id, transaction_id, account_id, amount, direction,
		       previous_balance, current_balance, account_version, created_at
		FROM entries
		WHERE transaction_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, txn.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return err
	}

	txn.Entries = entries

	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction

	err := row.Scan(
		&txn.ID,
		&txn.Currency,
		&txn.Status,
		&txn.IdempotencyKey,
		&txn.ExternalRef,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return &txn, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry

	for rows.Next() {
		var e domain.Entry

		err := rows.Scan(
			&e.ID,
			&e.TransactionID,
			&e.AccountID,
			&e.Amount,
			&e.Direction,
			&e.PreviousBalance,
			&e.CurrentBalance,
			&e.AccountVersion,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
