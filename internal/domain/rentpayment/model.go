package rentpayment

import (
	"fmt"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ActivePeriodStatuses are the statuses that occupy a lease period. At most one
// payment per (lease, month, year) may be in one of them.
var ActivePeriodStatuses = []types.PaymentStatus{
	types.PaymentStatusPending,
	types.PaymentStatusProcessing,
	types.PaymentStatusAuthorized,
	types.PaymentStatusCompleted,
	types.PaymentStatusCaptured,
}

// RefundableStatuses are the statuses a refund may start from.
var RefundableStatuses = []types.PaymentStatus{
	types.PaymentStatusCompleted,
	types.PaymentStatusCaptured,
}

var allowedTransitions = map[types.PaymentStatus][]types.PaymentStatus{
	types.PaymentStatusPending: {
		types.PaymentStatusProcessing, types.PaymentStatusAuthorized, types.PaymentStatusCaptured,
		types.PaymentStatusCompleted, types.PaymentStatusFailed, types.PaymentStatusCancelled,
	},
	types.PaymentStatusProcessing: {
		types.PaymentStatusAuthorized, types.PaymentStatusCaptured, types.PaymentStatusCompleted,
		types.PaymentStatusFailed, types.PaymentStatusCancelled,
	},
	types.PaymentStatusAuthorized: {
		types.PaymentStatusCaptured, types.PaymentStatusCompleted, types.PaymentStatusFailed,
		types.PaymentStatusCancelled,
	},
	types.PaymentStatusCaptured: {
		types.PaymentStatusCompleted, types.PaymentStatusRefunded, types.PaymentStatusFailed,
	},
	// ACH returns arrive after the payment was reported complete
	types.PaymentStatusCompleted: {
		types.PaymentStatusCaptured, types.PaymentStatusRefunded, types.PaymentStatusFailed,
	},
	// a timed out attempt may later be confirmed by reconciliation
	types.PaymentStatusFailed: {
		types.PaymentStatusCompleted, types.PaymentStatusCaptured,
	},
}

// Refund records a refund applied to a payment.
type Refund struct {
	Amount        decimal.Decimal `json:"amount" swaggertype:"string"`
	Date          time.Time       `json:"date"`
	Reason        string          `json:"reason"`
	TransactionID string          `json:"transaction_id"`
}

// RentPayment is one attempt to settle one lease period.
type RentPayment struct {
	ID                   string                `db:"id" json:"id"`
	LeaseID              string                `db:"lease_id" json:"lease_id"`
	TenantID             string                `db:"tenant_id" json:"tenant_id"`
	PaymentMethodID      string                `db:"payment_method_id" json:"payment_method_id"`
	Amount               decimal.Decimal       `db:"amount" json:"amount" swaggertype:"string"`
	LateFeeAmount        decimal.Decimal       `db:"late_fee_amount" json:"late_fee_amount" swaggertype:"string"`
	ProcessingFee        decimal.Decimal       `db:"processing_fee" json:"processing_fee" swaggertype:"string"`
	TotalAmount          decimal.Decimal       `db:"total_amount" json:"total_amount" swaggertype:"string"`
	Currency             string                `db:"currency" json:"currency"`
	PaymentMonth         int                   `db:"payment_month" json:"payment_month"`
	PaymentYear          int                   `db:"payment_year" json:"payment_year"`
	PaymentDate          *time.Time            `db:"payment_date" json:"payment_date,omitempty"`
	RentDueDate          *time.Time            `db:"rent_due_date" json:"rent_due_date,omitempty"`
	PaymentType          types.PaymentType     `db:"payment_type" json:"payment_type"`
	PaymentStatus        types.PaymentStatus   `db:"payment_status" json:"payment_status"`
	GatewayProvider      types.GatewayProvider `db:"gateway_provider" json:"gateway_provider"`
	GatewayTransactionID string                `db:"gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	GatewayReferenceCode string                `db:"gateway_reference_code" json:"gateway_reference_code,omitempty"`
	AuthorizationCode    string                `db:"authorization_code" json:"authorization_code,omitempty"`
	ResponseCode         string                `db:"response_code" json:"response_code,omitempty"`
	FailureReason        string                `db:"failure_reason" json:"failure_reason,omitempty"`
	IsRecurring          bool                  `db:"is_recurring" json:"is_recurring"`
	RecurringScheduleID  string                `db:"recurring_schedule_id" json:"recurring_schedule_id,omitempty"`
	Refund               *Refund               `db:"refund" json:"refund,omitempty"`
	MaskedPaymentInfo    string                `db:"masked_payment_info" json:"masked_payment_info,omitempty"`
	Description          string                `db:"description" json:"description,omitempty"`
	Metadata             map[string]string     `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// ComputeTotal sets TotalAmount to amount + late fee + processing fee.
func (p *RentPayment) ComputeTotal() decimal.Decimal {
	p.TotalAmount = p.Amount.Add(p.LateFeeAmount).Add(p.ProcessingFee)
	return p.TotalAmount
}

// Validate checks field ranges and recomputes the total. The total is never
// taken from the caller.
func (p *RentPayment) Validate() error {
	if p.LeaseID == "" || p.TenantID == "" || p.PaymentMethodID == "" {
		return ierr.NewError("lease, tenant and payment method are required").
			WithHint("Payment must reference a lease, a tenant and a payment method").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{"amount": p.Amount.String()}).
			Mark(ierr.ErrValidation)
	}
	if p.LateFeeAmount.IsNegative() || p.ProcessingFee.IsNegative() {
		return ierr.NewError("fees must not be negative").
			WithHint("Late fee and processing fee must not be negative").
			Mark(ierr.ErrValidation)
	}
	if err := ValidatePeriod(p.PaymentMonth, p.PaymentYear); err != nil {
		return err
	}
	if err := p.PaymentStatus.Validate(); err != nil {
		return err
	}
	p.ComputeTotal()
	return nil
}

// ValidatePeriod checks a (month, year) pair.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ierr.NewError("invalid payment month").
			WithHint("Payment month must be between 1 and 12").
			WithReportableDetails(map[string]interface{}{"payment_month": month}).
			Mark(ierr.ErrValidation)
	}
	if year < 2000 || year > 9999 {
		return ierr.NewError("invalid payment year").
			WithHint("Payment year must be a four digit year").
			WithReportableDetails(map[string]interface{}{"payment_year": year}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OccupiesPeriod reports whether the payment blocks another attempt for its period.
func (p *RentPayment) OccupiesPeriod() bool {
	return lo.Contains(ActivePeriodStatuses, p.PaymentStatus)
}

func (p *RentPayment) IsRefundable() bool {
	return lo.Contains(RefundableStatuses, p.PaymentStatus)
}

// CanTransitionTo reports whether moving to next is allowed.
func (p *RentPayment) CanTransitionTo(next types.PaymentStatus) bool {
	if p.PaymentStatus == next {
		return false
	}
	return lo.Contains(allowedTransitions[p.PaymentStatus], next)
}

// IsLate reports whether the payment was made after its due date.
func (p *RentPayment) IsLate() bool {
	if p.PaymentDate == nil || p.RentDueDate == nil {
		return false
	}
	return p.PaymentDate.After(*p.RentDueDate)
}

// PeriodLabel renders the period as "Jan 2025".
func (p *RentPayment) PeriodLabel() string {
	return fmt.Sprintf("%s %d", time.Month(p.PaymentMonth).String()[:3], p.PaymentYear)
}

// SamePeriod reports whether the payment is for the given lease period.
func (p *RentPayment) SamePeriod(leaseID string, month, year int) bool {
	return p.LeaseID == leaseID && p.PaymentMonth == month && p.PaymentYear == year
}
