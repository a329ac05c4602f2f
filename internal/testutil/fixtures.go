package testutil

import (
	"context"
	"time"

	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
)

// NewTestLease returns an active lease for 2025 with rent 2500.00 due on the 1st.
func NewTestLease(tenantID string) *lease.Lease {
	return &lease.Lease{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEASE),
		UnitID:          "unit_" + types.GenerateUUID(),
		PropertyID:      "prop_1",
		TenantID:        tenantID,
		MonthlyRent:     decimal.RequireFromString("2500.00"),
		SecurityDeposit: decimal.RequireFromString("2500.00"),
		LeaseStartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:    time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		RentDueDay:      1,
		GracePeriodDays: lease.DefaultGracePeriodDays,
		LateFeeAmount:   decimal.RequireFromString("50.00"),
		Status:          types.LeaseStatusActive,
		BaseModel:       types.GetDefaultBaseModel(context.Background()),
	}
}

// NewTestCard returns an active Visa expiring in 2030.
func NewTestCard(tenantID string) *paymentmethod.PaymentMethod {
	return &paymentmethod.PaymentMethod{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		TenantID:        tenantID,
		PaymentType:     types.PaymentTypeCard,
		GatewayProvider: types.GatewayProviderCybersource,
		Token:           "tok_" + types.GenerateUUID(),
		IsDefault:       true,
		Status:          types.PaymentMethodStatusActive,
		CardLastFour:    "4242",
		CardBrand:       "Visa",
		CardExpiryMonth: 12,
		CardExpiryYear:  2030,
		BillingAddress: paymentmethod.BillingAddress{
			Line1:   "1 Main St",
			City:    "Austin",
			State:   "TX",
			ZipCode: "78701",
			Country: "US",
		},
		BaseModel: types.GetDefaultBaseModel(context.Background()),
	}
}

// NewTestPayment returns a payment for the lease period in the given status.
func NewTestPayment(l *lease.Lease, paymentMethodID string, month, year int, status types.PaymentStatus) *rentpayment.RentPayment {
	p := &rentpayment.RentPayment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RENT_PAYMENT),
		LeaseID:         l.ID,
		TenantID:        l.TenantID,
		PaymentMethodID: paymentMethodID,
		Amount:          l.MonthlyRent,
		Currency:        types.DefaultCurrency,
		PaymentMonth:    month,
		PaymentYear:     year,
		PaymentType:     types.PaymentTypeCard,
		PaymentStatus:   status,
		GatewayProvider: types.GatewayProviderCybersource,
		BaseModel:       types.GetDefaultBaseModel(context.Background()),
	}
	p.ComputeTotal()
	return p
}

// NewTestSchedule returns an active schedule for the lease charging pmID.
func NewTestSchedule(l *lease.Lease, paymentMethodID string, paymentDay int, next time.Time) *recurringschedule.RecurringSchedule {
	return &recurringschedule.RecurringSchedule{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_SCHEDULE),
		LeaseID:            l.ID,
		TenantID:           l.TenantID,
		PaymentMethodID:    paymentMethodID,
		IsActive:           true,
		PaymentDay:         paymentDay,
		ScheduleType:       types.RecurringScheduleTypeMonthly,
		StartDate:          l.LeaseStartDate,
		DefaultAmount:      l.MonthlyRent,
		NextPaymentDate:    next,
		SendReminderEmail:  true,
		ReminderDaysBefore: types.DefaultReminderDaysBefore,
		SendReceiptEmail:   true,
		BaseModel:          types.GetDefaultBaseModel(context.Background()),
	}
}
