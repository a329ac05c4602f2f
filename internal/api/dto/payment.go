package dto

import (
	"fmt"

	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/rentpay/rentpay/internal/validator"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest is a tenant paying one lease period by hand.
type InitiatePaymentRequest struct {
	// TenantID is taken from the authenticated caller, never from the body
	TenantID        string           `json:"-"`
	LeaseID         string           `json:"lease_id" validate:"required"`
	PaymentMethodID string           `json:"payment_method_id" validate:"required"`
	Amount          decimal.Decimal  `json:"amount" swaggertype:"string" validate:"gt=0"`
	PaymentMonth    int              `json:"payment_month" validate:"min=1,max=12"`
	PaymentYear     int              `json:"payment_year" validate:"min=2000,max=9999"`
	ProcessingFee   decimal.Decimal  `json:"processing_fee,omitempty" swaggertype:"string"`
	// LateFeeAmount defaults to the lease's late fee when the period is overdue
	LateFeeAmount *decimal.Decimal `json:"late_fee_amount,omitempty" swaggertype:"string"`
	Description   string           `json:"description,omitempty" validate:"max=255"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.TenantID == "" {
		return ierr.NewError("tenant_id is required").
			WithHint("Payments must be made by an authenticated tenant").
			Mark(ierr.ErrValidation)
	}
	if r.ProcessingFee.IsNegative() || (r.LateFeeAmount != nil && r.LateFeeAmount.IsNegative()) {
		return ierr.NewError("fees must not be negative").
			WithHint("Late fee and processing fee must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OrderReference is the merchant reference sent to the gateway.
func (r *InitiatePaymentRequest) OrderReference() string {
	return fmt.Sprintf("rent_%s_%d_%d", r.LeaseID, r.PaymentMonth, r.PaymentYear)
}

type RefundPaymentRequest struct {
	// Amount defaults to the payment's total
	Amount *decimal.Decimal `json:"amount,omitempty" swaggertype:"string"`
	Reason string           `json:"reason,omitempty" validate:"max=255"`
}

func (r *RefundPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("refund amount must be positive").
			WithHint("Refund amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type PaymentResponse struct {
	*rentpayment.RentPayment
	IsLate bool `json:"is_late"`
}

func NewPaymentResponse(p *rentpayment.RentPayment) *PaymentResponse {
	return &PaymentResponse{RentPayment: p, IsLate: p.IsLate()}
}

type ListPaymentsResponse = types.ListResponse[*PaymentResponse]

// PaymentMethodResponse hides the gateway token and adds a display label.
type PaymentMethodResponse struct {
	*paymentmethod.PaymentMethod
	DisplayName string `json:"display_name"`
}

func NewPaymentMethodResponse(pm *paymentmethod.PaymentMethod) *PaymentMethodResponse {
	return &PaymentMethodResponse{PaymentMethod: pm, DisplayName: pm.DisplayName()}
}

type ListPaymentMethodsResponse = types.ListResponse[*PaymentMethodResponse]
