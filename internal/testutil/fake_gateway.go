package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
)

// FakeSignatureHeader carries the signature FakeGateway.ParseWebhook expects.
const (
	FakeSignatureHeader = "X-Fake-Signature"
	FakeValidSignature  = "valid"
)

// ChargeOutcome scripts one AuthorizeAndCapture call.
type ChargeOutcome struct {
	Result *integration.ChargeResult
	Err    error
	// Delay holds the call until it elapses or the context ends.
	Delay time.Duration
}

// FakeGateway is a scripted integration.PaymentGateway. Unscripted charges
// are approved.
type FakeGateway struct {
	mu       sync.Mutex
	provider types.GatewayProvider
	outcomes []ChargeOutcome
	seq      int

	Charges []*integration.ChargeRequest
	Refunds []*integration.RefundRequest
	Voids   []string

	RefundResult *integration.RefundResult
	RefundErr    error
	Statuses     map[string]*integration.TransactionStatus
	StatusErr    error
	// Events are returned by ParseWebhook keyed by payload.
	Events map[string]*integration.GatewayEvent
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		provider: types.GatewayProviderCybersource,
		Statuses: make(map[string]*integration.TransactionStatus),
		Events:   make(map[string]*integration.GatewayEvent),
	}
}

func (g *FakeGateway) Provider() types.GatewayProvider { return g.provider }

// Enqueue scripts the next charges in order.
func (g *FakeGateway) Enqueue(outcomes ...ChargeOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcomes = append(g.outcomes, outcomes...)
}

// Decline scripts the next charge as a decline.
func (g *FakeGateway) Decline(code, message string) {
	g.Enqueue(ChargeOutcome{Result: &integration.ChargeResult{
		Success:      false,
		Status:       types.PaymentStatusFailed,
		ErrorCode:    code,
		ErrorMessage: message,
	}})
}

// FailTransport scripts the next charge as a transport error.
func (g *FakeGateway) FailTransport(message string) {
	g.Enqueue(ChargeOutcome{Err: ierr.NewError(message).
		WithHint("Payment gateway is unavailable").
		WithReportableDetails(map[string]interface{}{
			"gateway_code":    "transport_error",
			"gateway_message": message,
		}).
		Mark(ierr.ErrGateway)})
}

func (g *FakeGateway) AuthorizeAndCapture(ctx context.Context, req *integration.ChargeRequest) (*integration.ChargeResult, error) {
	g.mu.Lock()
	g.Charges = append(g.Charges, req)
	g.seq++
	txnID := fmt.Sprintf("txn_%d", g.seq)
	var outcome ChargeOutcome
	if len(g.outcomes) > 0 {
		outcome = g.outcomes[0]
		g.outcomes = g.outcomes[1:]
	}
	g.mu.Unlock()

	if outcome.Delay > 0 {
		select {
		case <-time.After(outcome.Delay):
		case <-ctx.Done():
			return nil, ierr.WithError(ctx.Err()).
				WithHint("Payment gateway timed out").
				WithReportableDetails(map[string]interface{}{
					"gateway_code":    "transport_error",
					"gateway_message": ctx.Err().Error(),
					"timeout":         true,
				}).
				Mark(ierr.ErrGateway)
		}
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	if outcome.Result != nil {
		res := *outcome.Result
		if res.TransactionID == "" {
			res.TransactionID = txnID
		}
		return &res, nil
	}
	return &integration.ChargeResult{
		Success:           true,
		TransactionID:     txnID,
		AuthorizationCode: "AUTH01",
		ResponseCode:      "00",
		Status:            types.PaymentStatusCompleted,
		Amount:            req.Amount,
	}, nil
}

func (g *FakeGateway) Refund(_ context.Context, req *integration.RefundRequest) (*integration.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunds = append(g.Refunds, req)
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	if g.RefundResult != nil {
		res := *g.RefundResult
		return &res, nil
	}
	return &integration.RefundResult{
		Success:     true,
		RefundID:    fmt.Sprintf("rf_%d", len(g.Refunds)),
		Amount:      req.Amount,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

func (g *FakeGateway) GetTransactionStatus(_ context.Context, transactionID string) (*integration.TransactionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.StatusErr != nil {
		return nil, g.StatusErr
	}
	st, ok := g.Statuses[transactionID]
	if !ok {
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction %s not found at the gateway", transactionID).
			Mark(ierr.ErrNotFound)
	}
	c := *st
	return &c, nil
}

// SetStatus scripts GetTransactionStatus for a transaction.
func (g *FakeGateway) SetStatus(transactionID, gatewayStatus string, status types.PaymentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Statuses[transactionID] = &integration.TransactionStatus{
		TransactionID: transactionID,
		GatewayStatus: gatewayStatus,
		Status:        status,
		Amount:        decimal.Zero,
	}
}

func (g *FakeGateway) Void(_ context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Voids = append(g.Voids, transactionID)
	return nil
}

func (g *FakeGateway) ParseWebhook(_ context.Context, payload []byte, headers http.Header) (*integration.GatewayEvent, error) {
	if headers.Get(FakeSignatureHeader) != FakeValidSignature {
		return nil, ierr.NewError("invalid webhook signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	event, ok := g.Events[string(payload)]
	if !ok {
		return nil, ierr.NewError("unknown payload").
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}
	c := *event
	return &c, nil
}

// ChargeCount is safe to call while charges are in flight.
func (g *FakeGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}
