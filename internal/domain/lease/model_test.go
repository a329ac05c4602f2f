package lease

import (
	"testing"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newLease() *Lease {
	return &Lease{
		ID:              "lease_1",
		UnitID:          "unit_1",
		TenantID:        "tenant_1",
		MonthlyRent:     decimal.NewFromInt(2500),
		LeaseStartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:    time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		RentDueDay:      1,
		GracePeriodDays: DefaultGracePeriodDays,
		LateFeeAmount:   decimal.NewFromInt(50),
		Status:          types.LeaseStatusActive,
	}
}

func TestLease_Validate(t *testing.T) {
	assert.NoError(t, newLease().Validate())

	t.Run("end before start", func(t *testing.T) {
		l := newLease()
		l.LeaseEndDate = l.LeaseStartDate
		assert.True(t, isValidation(l.Validate()))
	})

	t.Run("non positive rent", func(t *testing.T) {
		l := newLease()
		l.MonthlyRent = decimal.Zero
		assert.True(t, isValidation(l.Validate()))
	})

	t.Run("due day out of range", func(t *testing.T) {
		l := newLease()
		l.RentDueDay = 32
		assert.True(t, isValidation(l.Validate()))
	})

	t.Run("unknown status", func(t *testing.T) {
		l := newLease()
		l.Status = "archived"
		assert.True(t, isValidation(l.Validate()))
	})
}

func TestLease_IsActive(t *testing.T) {
	l := newLease()
	assert.True(t, l.IsActive(time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)))
	assert.False(t, l.IsActive(time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)))

	l.Status = types.LeaseStatusTerminated
	assert.False(t, l.IsActive(time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)))
}

func TestLease_LateFee(t *testing.T) {
	l := newLease()
	l.RentDueDay = 31

	// due date clamps to Feb 28, grace runs to Mar 5
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), l.DueDate(time.February, 2025))
	assert.True(t, l.LateFeeFor(time.February, 2025, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)).IsZero())
	assert.True(t, l.LateFeeFor(time.February, 2025, time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC)).Equal(decimal.NewFromInt(50)))
}

func TestLease_DurationMonths(t *testing.T) {
	l := newLease()
	assert.Equal(t, 11, l.DurationMonths())

	l.LeaseEndDate = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 12, l.DurationMonths())
}

func isValidation(err error) bool {
	return err != nil && ierr.IsValidation(err)
}
