package testutil

import (
	"context"
	"sync"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

type mockTxKey struct{}

type mockTx struct {
	held []string
}

// MockPostgresClient implements postgres.IClient for the in-memory stores.
// Transactions do not roll back writes. Advisory locks are real keyed mutexes
// released when the outermost WithTx returns, so lock contention behaves as
// it does against Postgres.
type MockPostgresClient struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{locks: make(map[string]*sync.Mutex)}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(mockTxKey{}).(*mockTx); ok {
		return fn(ctx)
	}

	tx := &mockTx{}
	defer c.release(tx)
	return fn(context.WithValue(ctx, mockTxKey{}, tx))
}

func (c *MockPostgresClient) LockKey(ctx context.Context, req types.LockRequest) error {
	tx, ok := ctx.Value(mockTxKey{}).(*mockTx)
	if !ok {
		return ierr.NewError("LockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	m := c.mutex(req.Key)
	timeout := req.GetTimeout()
	deadline := time.Now().Add(timeout)
	for !m.TryLock() {
		if timeout <= 0 || time.Now().After(deadline) {
			return ierr.NewError("lock already held").
				WithHint("Another operation is in progress, please retry").
				WithReportableDetails(map[string]interface{}{"lock_key": req.Key}).
				Mark(ierr.ErrAlreadyExists)
		}
		select {
		case <-ctx.Done():
			return ierr.WithError(ctx.Err()).
				WithHint("Lock wait cancelled").
				Mark(ierr.ErrDatabase)
		case <-time.After(time.Millisecond):
		}
	}
	tx.held = append(tx.held, req.Key)
	return nil
}

func (c *MockPostgresClient) mutex(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	return m
}

func (c *MockPostgresClient) release(tx *mockTx) {
	for _, key := range tx.held {
		c.mutex(key).Unlock()
	}
}
