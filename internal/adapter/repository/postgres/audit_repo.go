package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// auditChainLockKey is the advisory lock serializing audit appends. Sequence
// assignment and hash chaining require a single writer at a time; an advisory
// xact lock releases automatically with the surrounding transaction.
const auditChainLockKey = 0x1ed6e2

// AuditRepository implements the append-only, hash-chained audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append appends a record in its own transaction.
func (r *AuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := appendRecord(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AppendTx appends a record inside the caller's transaction, so the record
// commits or rolls back with the posting it describes.
func (r *AuditRepository) AppendTx(ctx context.Context, tx usecase.Transaction, rec *domain.AuditRecord) error {
	return appendRecord(ctx, tx.(*Tx).PgxTx(), rec)
}

func appendRecord(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, auditChainLockKey); err != nil {
		return fmt.Errorf("acquire audit chain lock: %w", err)
	}

	var (
		headSeq  int64
		headHash = domain.GenesisHash
	)

	err := tx.QueryRow(ctx, `SELECT seq, hash FROM audit_records ORDER BY seq DESC LIMIT 1`).
		Scan(&headSeq, &headHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read audit chain head: %w", err)
	}

	rec.Sequence = headSeq + 1
	rec.Chain(headHash)

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_records (
			seq, kind, transaction_id, account_id, reason,
			payload, prev_hash, hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.Sequence,
		rec.Kind,
		nullable(rec.TransactionID),
		nullable(rec.AccountID),
		nullable(string(rec.Reason)),
		rec.Payload,
		rec.PrevHash,
		rec.Hash,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}

	return nil
}

// ReplayFrom returns records with seq >= fromSequence in ascending order.
func (r *AuditRepository) ReplayFrom(ctx context.Context, fromSequence int64, limit int) ([]*domain.AuditRecord, error) {
	query := `
		SELECT seq, kind, transaction_id, account_id, reason,
		       payload, prev_hash, hash, created_at
		FROM audit_records
		WHERE seq >= $1
		ORDER BY seq
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord

	for rows.Next() {
		var (
			rec           domain.AuditRecord
			transactionID *string
			accountID     *string
			reason        *string
		)

		err := rows.Scan(
			&rec.Sequence,
			&rec.Kind,
			&transactionID,
			&accountID,
			&reason,
			&rec.Payload,
			&rec.PrevHash,
			&rec.Hash,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if transactionID != nil {
			rec.TransactionID = *transactionID
		}
		if accountID != nil {
			rec.AccountID = *accountID
		}
		if reason != nil {
			rec.Reason = domain.RejectionReason(*reason)
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
