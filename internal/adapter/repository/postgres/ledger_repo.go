package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository implements ledger-wide aggregate queries.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// SumBalancesAndEntries computes the two closed-system sums in one round
// trip. COALESCE covers the empty-ledger case, where both sums are zero.
func (r *LedgerRepository) SumBalancesAndEntries(ctx context.Context) (int64, int64, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(balance) FROM accounts), 0),
			COALESCE((SELECT SUM(amount) FROM entries), 0)
	`

	var totalBalance, totalEntries int64
	if err := r.pool.QueryRow(ctx, query).Scan(&totalBalance, &totalEntries); err != nil {
		return 0, 0, err
	}

	return totalBalance, totalEntries, nil
}
