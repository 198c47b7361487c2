package usecase

import "time"

const (
	// DefaultIdempotencyTTL is how long posting outcomes stay replayable.
	// It should comfortably cover realistic client retry windows.
	DefaultIdempotencyTTL = 24 * time.Hour

	// DefaultLockTimeout bounds how long a posting waits for account locks
	// before aborting with LOCK_TIMEOUT.
	DefaultLockTimeout = 5 * time.Second

	// DefaultSubmitWaitTimeout bounds how long a duplicate submission waits
	// for the claim winner's outcome.
	DefaultSubmitWaitTimeout = 10 * time.Second

	// DefaultPageSize and MaxPageSize bound list queries.
	DefaultPageSize = 20
	MaxPageSize     = 100

	// ReplayBatchSize is how many audit records reconciliation reads per page.
	ReplayBatchSize = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}

	if limit > MaxPageSize {
		return MaxPageSize
	}

	return limit
}
