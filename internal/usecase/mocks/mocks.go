// Package mocks provides in-memory fakes of the usecase interfaces. The
// fakes honor the same contracts as the real adapters (row copies under
// lock, idempotency-key uniqueness, audit sequence and hash chaining), so
// usecase tests exercise the real algorithms against them.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// MockAccountRepository is an in-memory implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsFunc          func(ctx context.Context, ids []string) ([]*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	ApplyPostingFunc      func(ctx context.Context, tx usecase.Transaction, id string, balance, version, lastSequence int64, updatedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Seed inserts an account directly, bypassing any transaction.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.ID] = &copied
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if account, ok := m.accounts[id]; ok {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	return m.GetByIDs(ctx, ids)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) ApplyPosting(ctx context.Context, tx usecase.Transaction, id string, balance, version, lastSequence int64, updatedAt time.Time) error {
	if m.ApplyPostingFunc != nil {
		return m.ApplyPostingFunc(ctx, tx, id, balance, version, lastSequence, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = balance
	account.Version = version
	account.LastSequence = lastSequence
	account.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var accounts []*domain.Account
	for i := offset; i < len(ids) && len(accounts) < limit; i++ {
		copied := *m.accounts[ids[i]]
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

// MockTransactionRepository is an in-memory implementation of
// TransactionRepository enforcing idempotency-key uniqueness like the
// database unique index does.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	byKey        map[string]string

	CreateFunc func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
		byKey:        make(map[string]string),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[txn.IdempotencyKey]; ok {
		return domain.ErrIdempotencyKeyReused
	}
	m.transactions[txn.ID] = txn
	m.byKey[txn.IdempotencyKey] = txn.ID
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return m.transactions[id], nil
}

func (m *MockTransactionRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, txn := range m.transactions {
		if txn.Status != domain.TransactionStatusPosted {
			continue
		}
		for _, e := range txn.Entries {
			if e.AccountID == accountID {
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	if offset > len(entries) {
		offset = len(entries)
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

// Count returns the number of stored transactions.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

// MockAuditRepository is an in-memory append-only audit log that assigns
// sequence numbers and extends the hash chain exactly like the real repo.
type MockAuditRepository struct {
	mu      sync.RWMutex
	records []*domain.AuditRecord

	AppendFunc func(ctx context.Context, rec *domain.AuditRecord) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, rec)
	}
	return m.append(rec)
}

func (m *MockAuditRepository) AppendTx(ctx context.Context, tx usecase.Transaction, rec *domain.AuditRecord) error {
	return m.append(rec)
}

func (m *MockAuditRepository) append(rec *domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prevHash := domain.GenesisHash
	if n := len(m.records); n > 0 {
		prevHash = m.records[n-1].Hash
	}
	rec.Sequence = int64(len(m.records) + 1)
	rec.Chain(prevHash)
	m.records = append(m.records, rec)
	return nil
}

func (m *MockAuditRepository) ReplayFrom(ctx context.Context, fromSequence int64, limit int) ([]*domain.AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditRecord
	for _, rec := range m.records {
		if rec.Sequence >= fromSequence {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Records returns a snapshot of all appended records.
func (m *MockAuditRepository) Records() []*domain.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AuditRecord, len(m.records))
	copy(out, m.records)
	return out
}

// MockTransactionManager serializes transactions with a real mutex held from
// Begin to Commit or Rollback, modelling the database's serialization of
// conflicting writers.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	return &mockTx{release: m.mu.Unlock}, nil
}

type mockTx struct {
	once    sync.Once
	release func()
}

func (t *mockTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

// MockIdempotencyStore is an in-memory claim-or-wait store.
type MockIdempotencyStore struct {
	mu       sync.Mutex
	claims   map[string]bool
	outcomes map[string][]byte
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		claims:   make(map[string]bool),
		outcomes: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if outcome, ok := m.outcomes[key]; ok {
		return false, outcome, nil
	}
	if m.claims[key] {
		return false, nil, nil
	}
	m.claims[key] = true
	return true, nil, nil
}

func (m *MockIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if outcome, ok := m.outcomes[key]; ok {
		return outcome, nil
	}
	if m.claims[key] {
		return nil, usecase.ErrOutcomePending
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockIdempotencyStore) Store(ctx context.Context, key string, outcome []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[key] = outcome
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, key)
	delete(m.outcomes, key)
	return nil
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MockIDGenerator produces monotonically increasing, lexically sortable IDs.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int64

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%012d", m.next)
}

// MockRetrier runs the operation once without retrying.
type MockRetrier struct{}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}

// MockLedgerRepository returns configurable ledger-wide sums.
type MockLedgerRepository struct {
	TotalBalance int64
	TotalEntries int64
	Err          error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) SumBalancesAndEntries(ctx context.Context) (int64, int64, error) {
	return m.TotalBalance, m.TotalEntries, m.Err
}
