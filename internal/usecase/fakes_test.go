package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSessionRepository struct {
	mu   sync.Mutex
	rows map[string]model.Session
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{rows: map[string]model.Session{}}
}

func (r *fakeSessionRepository) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.SessionID] = *s
	return nil
}

func (r *fakeSessionRepository) GetBySessionID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (r *fakeSessionRepository) Transition(_ context.Context, id string, t repository.SessionTransition) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, from := range t.From {
		if !from.CanTransitionTo(t.To) {
			return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, from, t.To)
		}
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range t.From {
		allowed = allowed || s == row.Status
	}
	if !allowed || (t.ActiveAt != nil && !row.ExpiresAt.After(*t.ActiveAt)) {
		return &row, repository.ErrConflict
	}
	row.Status = t.To
	if t.Mutate != nil {
		t.Mutate(&row)
	}
	r.rows[id] = row
	return &row, nil
}

func (r *fakeSessionRepository) ListActiveByCustomer(_ context.Context, customerID string, now time.Time) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, row := range r.rows {
		if row.CustomerID == customerID && row.IsActive(now) {
			row := row
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *fakeSessionRepository) DeleteExpired(_ context.Context, statuses []model.SessionStatus, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		for _, s := range statuses {
			if row.Status == s && row.ExpiresAt.Before(now) {
				delete(r.rows, id)
				n++
				break
			}
		}
	}
	return n, nil
}

type fakeTransactionRepository struct {
	mu    sync.Mutex
	rows  map[string]model.Transaction
	clock *testClock
}

func newFakeTransactionRepository(clock *testClock) *fakeTransactionRepository {
	return &fakeTransactionRepository{rows: map[string]model.Transaction{}, clock: clock}
}

func (r *fakeTransactionRepository) Create(_ context.Context, txn *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(txn)
	return nil
}

func (r *fakeTransactionRepository) CreatePayment(_ context.Context, txn *model.Transaction) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.SessionID == txn.SessionID && row.Type == model.TransactionTypePayment &&
			row.Status != model.TransactionStatusCancelled && row.Status != model.TransactionStatusFailed {
			existing := row
			return &existing, repository.ErrConflict
		}
	}
	r.insert(txn)
	return txn, nil
}

func (r *fakeTransactionRepository) insert(txn *model.Transaction) {
	txn.ID = uint64(len(r.rows) + 1)
	txn.CreatedAt = r.clock.Now()
	txn.UpdatedAt = txn.CreatedAt
	r.rows[txn.TransactionID] = *txn
}

func (r *fakeTransactionRepository) GetByTransactionID(_ context.Context, id string) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (r *fakeTransactionRepository) Transition(_ context.Context, id string, t repository.TransactionTransition) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, from := range t.From {
		if !from.CanTransitionTo(t.To) {
			return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, from, t.To)
		}
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range t.From {
		allowed = allowed || s == row.Status
	}
	if !allowed || (t.NotTimedOutAt != nil && row.IsTimedOut(*t.NotTimedOutAt)) {
		return &row, repository.ErrConflict
	}
	row.Status = t.To
	if t.Mutate != nil {
		t.Mutate(&row)
	}
	r.rows[id] = row
	return &row, nil
}

func (r *fakeTransactionRepository) CreateRefund(_ context.Context, parentID string, build repository.RefundBuilder) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	parent, ok := r.rows[parentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	refunded := decimal.Zero
	for _, row := range r.rows {
		if row.ParentTransactionID != nil && *row.ParentTransactionID == parentID &&
			row.Type == model.TransactionTypeRefund && row.Status == model.TransactionStatusCompleted {
			refunded = refunded.Add(row.Amount)
		}
	}
	refund, err := build(&parent, refunded)
	if err != nil {
		return nil, err
	}
	r.insert(refund)
	return refund, nil
}

func (r *fakeTransactionRepository) ListByCustomer(_ context.Context, customerID string, f dto.TransactionFilters) ([]*model.Transaction, error) {
	return r.list(func(t model.Transaction) bool { return t.CustomerID == customerID }, f), nil
}

func (r *fakeTransactionRepository) ListByMerchant(_ context.Context, merchantID string, f dto.TransactionFilters) ([]*model.Transaction, error) {
	return r.list(func(t model.Transaction) bool { return t.MerchantID == merchantID }, f), nil
}

func (r *fakeTransactionRepository) list(owner func(model.Transaction) bool, f dto.TransactionFilters) []*model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, row := range r.rows {
		if !owner(row) ||
			(f.Status != nil && row.Status != *f.Status) ||
			(f.Type != nil && row.Type != *f.Type) {
			continue
		}
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// fakeCache honours TTLs against the test clock.
type fakeCache struct {
	mu      sync.Mutex
	clock   *testClock
	values  map[string][]byte
	expires map[string]time.Time
}

func newFakeCache(clock *testClock) *fakeCache {
	return &fakeCache{clock: clock, values: map[string][]byte{}, expires: map[string]time.Time{}}
}

func (c *fakeCache) live(key string) bool {
	if _, ok := c.values[key]; !ok {
		return false
	}
	if exp, ok := c.expires[key]; ok && !c.clock.Now().Before(exp) {
		delete(c.values, key)
		delete(c.expires, key)
		return false
	}
	return true
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(key) {
		return nil, repository.ErrCacheMiss
	}
	return c.values[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl)
	return nil
}

func (c *fakeCache) put(key string, value []byte, ttl time.Duration) {
	c.values[key] = value
	delete(c.expires, key)
	if ttl > 0 {
		c.expires[key] = c.clock.Now().Add(ttl)
	}
}

func (c *fakeCache) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live(key) {
		return false, nil
	}
	c.put(key, value, ttl)
	return true, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	delete(c.expires, key)
	return nil
}

func (c *fakeCache) Close() error { return nil }

// MockNotifier is a mock implementation of provider.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, eventName string, channels []string, payload map[string]interface{}) error {
	args := m.Called(ctx, eventName, channels, payload)
	return args.Error(0)
}

// MockBalanceProvider is a mock implementation of provider.BalanceProvider
type MockBalanceProvider struct {
	mock.Mock
}

func (m *MockBalanceProvider) SufficientFunds(ctx context.Context, customerID string, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, customerID, amount)
	return args.Bool(0), args.Error(1)
}
