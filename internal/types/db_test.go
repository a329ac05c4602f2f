package types

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestGenerateLockKeyIsDeterministic(t *testing.T) {
	a := GenerateLockKey(LockScopeRentPaymentPeriod, map[string]interface{}{
		"lease_id": "lease_1",
		"month":    7,
		"year":     2025,
	})
	b := GenerateLockKey(LockScopeRentPaymentPeriod, map[string]interface{}{
		"year":     2025,
		"lease_id": "lease_1",
		"month":    7,
	})
	assert.Equal(t, a, b)
	assert.Equal(t, "rent_payment_period:lease_id=lease_1:month=7:year=2025", a)
}

func TestLockRequestTimeout(t *testing.T) {
	assert.Equal(t, DefaultLockTimeout, LockRequest{}.GetTimeout())
	assert.Equal(t, time.Duration(0), LockRequest{Timeout: lo.ToPtr(time.Duration(0))}.GetTimeout())
}
