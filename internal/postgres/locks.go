package postgres

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

// LockKey acquires an advisory lock based on the provided request.
// If Timeout is nil, defaults to 30 seconds. If Timeout is 0 or negative, uses fail-fast behavior.
// Auto released on tx commit/rollback.
// Must be called inside a transaction.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("LockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	timeout := req.GetTimeout()

	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return ierr.NewError("lock already held").
				WithHint("Another operation is in progress, please retry").
				WithReportableDetails(map[string]interface{}{"lock_key": req.Key}).
				Mark(ierr.ErrAlreadyExists)
		}
		return nil
	}

	// SET LOCAL resets on commit/rollback
	timeoutMs := int(timeout.Milliseconds())
	if err := tx.WithContext(ctx).Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", timeoutMs)).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	if err := tx.WithContext(ctx).Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`, req.Key).Error; err != nil {
		if isLockTimeoutError(err) {
			return ierr.WithError(err).
				WithHintf("Could not acquire lock within %v, please retry", timeout).
				WithReportableDetails(map[string]interface{}{"lock_key": req.Key}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// isLockTimeoutError checks for SQLSTATE 55P03 (lock_not_available).
func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03"
	}
	return false
}

// TryLockKey tries acquiring advisory lock immediately.
// Returns ok=false if lock is already held.
// Must be called inside a transaction.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, ierr.NewError("TryLockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	var ok bool
	if err := tx.WithContext(ctx).Raw(`SELECT pg_try_advisory_xact_lock(hashtext(?))`, key).Scan(&ok).Error; err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}
	return ok, nil
}
