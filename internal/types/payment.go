package types

import (
	"fmt"
	"strings"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/samber/lo"
)

// PaymentStatus is the lifecycle state of a rent payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

var allPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusAuthorized,
	PaymentStatusCaptured,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
	PaymentStatusCancelled,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	if lo.Contains(allPaymentStatuses, s) {
		return nil
	}
	return ierr.NewError("invalid payment status").
		WithHint(fmt.Sprintf("Payment status must be one of: %s", strings.Join(lo.Map(allPaymentStatuses, func(s PaymentStatus, _ int) string { return string(s) }), ", "))).
		Mark(ierr.ErrValidation)
}

// PaymentType is the instrument family of a payment method.
type PaymentType string

const (
	PaymentTypeCard PaymentType = "card"
	PaymentTypeACH  PaymentType = "ach"
)

func (t PaymentType) Validate() error {
	switch t {
	case PaymentTypeCard, PaymentTypeACH:
		return nil
	}
	return ierr.NewError("invalid payment type").
		WithHint("Payment type must be one of: card, ach").
		Mark(ierr.ErrValidation)
}

// GatewayProvider identifies the payment processor behind a transaction.
type GatewayProvider string

const (
	GatewayProviderCybersource GatewayProvider = "cybersource"
	GatewayProviderStripe      GatewayProvider = "stripe"
)

func (p GatewayProvider) Validate() error {
	switch p {
	case GatewayProviderCybersource, GatewayProviderStripe:
		return nil
	}
	return ierr.NewError("invalid gateway provider").
		WithHint("Gateway provider must be one of: cybersource, stripe").
		Mark(ierr.ErrValidation)
}

// GatewayEventType is the normalised kind of an inbound gateway notification.
type GatewayEventType string

const (
	GatewayEventAuthorized      GatewayEventType = "authorized"
	GatewayEventCaptured        GatewayEventType = "captured"
	GatewayEventFailed          GatewayEventType = "failed"
	GatewayEventRefundCompleted GatewayEventType = "refund.completed"
)

const DefaultCurrency = "USD"
