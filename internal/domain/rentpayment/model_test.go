package rentpayment

import (
	"testing"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payment() *RentPayment {
	return &RentPayment{
		LeaseID:         "lease_1",
		TenantID:        "tenant_1",
		PaymentMethodID: "pm_1",
		Amount:          decimal.RequireFromString("2500.00"),
		PaymentMonth:    7,
		PaymentYear:     2025,
		PaymentStatus:   types.PaymentStatusPending,
	}
}

func TestRentPayment_TotalInvariant(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		late   string
		fee    string
		want   string
	}{
		{"rent only", "2500.00", "0", "0", "2500.00"},
		{"with late fee", "2500.00", "50.00", "0", "2550.00"},
		{"with both fees", "1234.56", "25.10", "2.99", "1262.65"},
		{"fractional cents", "0.01", "0.02", "0.03", "0.06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// assignment order must not matter
			p := payment()
			p.ProcessingFee = decimal.RequireFromString(tt.fee)
			p.TotalAmount = decimal.NewFromInt(999999)
			p.LateFeeAmount = decimal.RequireFromString(tt.late)
			p.Amount = decimal.RequireFromString(tt.amount)

			require.NoError(t, p.Validate())
			assert.True(t, p.TotalAmount.Equal(decimal.RequireFromString(tt.want)), "got %s", p.TotalAmount)
			assert.True(t, p.TotalAmount.Equal(p.Amount.Add(p.LateFeeAmount).Add(p.ProcessingFee)))
		})
	}
}

func TestRentPayment_Validate(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		p := payment()
		p.Amount = decimal.Zero
		assert.True(t, ierr.IsValidation(p.Validate()))
	})
	t.Run("negative fee", func(t *testing.T) {
		p := payment()
		p.ProcessingFee = decimal.NewFromInt(-1)
		assert.True(t, ierr.IsValidation(p.Validate()))
	})
	t.Run("month out of range", func(t *testing.T) {
		p := payment()
		p.PaymentMonth = 13
		assert.True(t, ierr.IsValidation(p.Validate()))
	})
}

func TestRentPayment_OccupiesPeriod(t *testing.T) {
	p := payment()
	for _, s := range []types.PaymentStatus{
		types.PaymentStatusPending, types.PaymentStatusProcessing, types.PaymentStatusAuthorized,
		types.PaymentStatusCompleted, types.PaymentStatusCaptured,
	} {
		p.PaymentStatus = s
		assert.True(t, p.OccupiesPeriod(), s)
	}
	for _, s := range []types.PaymentStatus{
		types.PaymentStatusFailed, types.PaymentStatusRefunded, types.PaymentStatusCancelled,
	} {
		p.PaymentStatus = s
		assert.False(t, p.OccupiesPeriod(), s)
	}
}

func TestRentPayment_Transitions(t *testing.T) {
	p := payment()
	p.PaymentStatus = types.PaymentStatusProcessing
	assert.True(t, p.CanTransitionTo(types.PaymentStatusCompleted))
	assert.True(t, p.CanTransitionTo(types.PaymentStatusFailed))
	assert.False(t, p.CanTransitionTo(types.PaymentStatusRefunded))

	p.PaymentStatus = types.PaymentStatusRefunded
	assert.False(t, lo.SomeBy([]types.PaymentStatus{
		types.PaymentStatusCompleted, types.PaymentStatusFailed, types.PaymentStatusCaptured,
	}, p.CanTransitionTo))

	p.PaymentStatus = types.PaymentStatusCompleted
	assert.False(t, p.CanTransitionTo(types.PaymentStatusCompleted))
	assert.True(t, p.IsRefundable())
}

func TestRentPayment_PeriodHelpers(t *testing.T) {
	p := payment()
	p.PaymentMonth = 1
	assert.Equal(t, "Jan 2025", p.PeriodLabel())
	assert.True(t, p.SamePeriod("lease_1", 1, 2025))
	assert.False(t, p.SamePeriod("lease_1", 2, 2025))

	due := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	paid := due.AddDate(0, 0, 3)
	p.RentDueDate = &due
	p.PaymentDate = &paid
	assert.True(t, p.IsLate())
}
