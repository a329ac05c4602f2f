package integration

import (
	"context"
	"net/http"
	"time"

	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the processor behind every charge, refund and status
// lookup. A declined charge is not an error: it comes back as a ChargeResult
// with Success false. Errors are reserved for transport failures, timeouts and
// malformed responses, and are marked ierr.ErrGateway.
type PaymentGateway interface {
	Provider() types.GatewayProvider
	AuthorizeAndCapture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)
	GetTransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error)
	Void(ctx context.Context, transactionID string) error
	// ParseWebhook verifies the delivery signature and normalises the event.
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*GatewayEvent, error)
}

// Customer is the billing identity sent with a charge.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Line1     string
	City      string
	State     string
	ZipCode   string
	Country   string
}

type ChargeRequest struct {
	// IdempotencyKey is the local payment id.
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
	PaymentToken   string
	PaymentType    types.PaymentType
	// OrderReference is echoed back by the gateway as the client reference code.
	OrderReference string
	Description    string
	Customer       Customer
	Metadata       map[string]string
}

type ChargeResult struct {
	Success           bool
	TransactionID     string
	AuthorizationCode string
	ResponseCode      string
	// Status is the local status the outcome maps to.
	Status       types.PaymentStatus
	Amount       decimal.Decimal
	ErrorCode    string
	ErrorMessage string
}

type RefundRequest struct {
	TransactionID  string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
	IdempotencyKey string
}

type RefundResult struct {
	Success      bool
	RefundID     string
	Amount       decimal.Decimal
	ErrorCode    string
	ErrorMessage string
	ProcessedAt  time.Time
}

// TransactionStatus is the gateway's current view of a transaction.
type TransactionStatus struct {
	TransactionID string
	GatewayStatus string
	// Status is empty when the gateway status has no local equivalent.
	Status types.PaymentStatus
	Amount decimal.Decimal
	Reason string
}

// GatewayEvent is a verified, normalised webhook notification.
type GatewayEvent struct {
	ID                  string
	Type                types.GatewayEventType
	Provider            types.GatewayProvider
	TransactionID       string
	RefundTransactionID string
	Amount              decimal.Decimal
	Reason              string
	ReceivedAt          time.Time
	// RawType is the provider's own event name, kept for logging.
	RawType string
}
