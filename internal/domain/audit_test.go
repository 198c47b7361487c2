package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainedRecords(t *testing.T, n int) []*AuditRecord {
	t.Helper()

	now := time.Now().UTC()
	prevHash := GenesisHash

	records := make([]*AuditRecord, 0, n)
	for i := range n {
		txn := &Transaction{
			ID:       "txn-" + string(rune('a'+i)),
			Currency: "USD",
			Status:   TransactionStatusPosted,
			Entries: []*Entry{
				{AccountID: "acc-1", Amount: -100, Direction: DirectionDebit},
				{AccountID: "acc-2", Amount: 100, Direction: DirectionCredit},
			},
		}

		rec, err := NewTransactionAudit(AuditTransactionPosted, txn, "", now)
		require.NoError(t, err)

		rec.Sequence = int64(i + 1)
		rec.Chain(prevHash)
		prevHash = rec.Hash

		records = append(records, rec)
	}

	return records
}

func TestVerifyChain(t *testing.T) {
	records := chainedRecords(t, 5)

	head, err := VerifyChain(GenesisHash, records)
	require.NoError(t, err)
	assert.Equal(t, records[4].Hash, head)
}

func TestVerifyChainRestartsFromAnyPoint(t *testing.T) {
	records := chainedRecords(t, 5)

	head, err := VerifyChain(GenesisHash, records[:2])
	require.NoError(t, err)

	head, err = VerifyChain(head, records[2:])
	require.NoError(t, err)
	assert.Equal(t, records[4].Hash, head)
}

func TestVerifyChainDetectsTamperedPayload(t *testing.T) {
	records := chainedRecords(t, 3)
	records[1].Payload = `{"transaction_id":"txn-b","entries":[{"account_id":"acc-1","amount":-1,"direction":"debit"}]}`

	_, err := VerifyChain(GenesisHash, records)
	assert.ErrorIs(t, err, ErrAuditChainBroken)
}

func TestVerifyChainDetectsRemovedRecord(t *testing.T) {
	records := chainedRecords(t, 3)

	_, err := VerifyChain(GenesisHash, []*AuditRecord{records[0], records[2]})
	assert.ErrorIs(t, err, ErrAuditChainBroken)
}

func TestTransactionAuditRoundTripsEntries(t *testing.T) {
	ref := "pay-42"
	txn := &Transaction{
		ID:          "txn-1",
		Currency:    "USD",
		Status:      TransactionStatusPosted,
		ExternalRef: &ref,
		Entries: []*Entry{
			{AccountID: "acc-1", Amount: -500, Direction: DirectionDebit},
			{AccountID: "acc-2", Amount: 500, Direction: DirectionCredit},
		},
	}

	rec, err := NewTransactionAudit(AuditTransactionPosted, txn, "", time.Now().UTC())
	require.NoError(t, err)

	entries, err := rec.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-500), entries[0].Amount)
	assert.Equal(t, "acc-2", entries[1].AccountID)
	assert.Equal(t, DirectionCredit, entries[1].Direction)
}
