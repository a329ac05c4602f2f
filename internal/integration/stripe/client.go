package stripe

import (
	"context"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client charges saved Stripe payment methods off session through
// PaymentIntents.
type Client struct {
	api           *client.API
	webhookSecret string
	currency      string
	logger        *logger.Logger
}

var _ integration.PaymentGateway = (*Client)(nil)

func NewClient(cfg *config.Configuration, log *logger.Logger) *Client {
	backends := &stripego.Backends{
		API: stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
			HTTPClient: &http.Client{Timeout: cfg.Gateway.Timeout},
			// charges must not be retried by the SDK
			MaxNetworkRetries: stripego.Int64(0),
		}),
	}
	return &Client{
		api:           client.New(cfg.Gateway.Stripe.SecretKey, backends),
		webhookSecret: cfg.Gateway.Stripe.WebhookSecret,
		currency:      cfg.Gateway.Currency,
		logger:        log,
	}
}

func (c *Client) Provider() types.GatewayProvider {
	return types.GatewayProviderStripe
}

// AuthorizeAndCapture confirms an off-session PaymentIntent against the saved
// payment method. The payment method token has the form "cus_x:pm_y" or just
// "pm_y".
func (c *Client) AuthorizeAndCapture(ctx context.Context, req *integration.ChargeRequest) (*integration.ChargeResult, error) {
	currency := strings.ToLower(lo.CoalesceOrEmpty(req.Currency, c.currency))
	customerID, paymentMethodID := splitToken(req.PaymentToken)

	params := &stripego.PaymentIntentParams{
		Amount:        stripego.Int64(types.ToMinorUnits(req.Amount, currency)),
		Currency:      stripego.String(currency),
		PaymentMethod: stripego.String(paymentMethodID),
		Confirm:       stripego.Bool(true),
		OffSession:    stripego.Bool(true),
		Description:   stripego.String(req.Description),
	}
	if customerID != "" {
		params.Customer = stripego.String(customerID)
	}
	params.Context = ctx
	params.AddMetadata("order_reference", req.OrderReference)
	params.AddMetadata("payment_id", req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		if declined := declineFrom(err); declined != nil {
			c.logger.Warnw("Stripe declined payment",
				"order_reference", req.OrderReference,
				"code", declined.ErrorCode)
			return declined, nil
		}
		c.logger.Errorw("failed to create payment intent in Stripe", "error", err, "order_reference", req.OrderReference)
		return nil, gatewayError(ctx, err, "Stripe payment request failed")
	}

	result := &integration.ChargeResult{
		TransactionID: pi.ID,
		Amount:        types.FromMinorUnits(pi.Amount, currency),
		Status:        MapPaymentIntentStatus(pi.Status),
	}
	if pi.LatestCharge != nil {
		result.AuthorizationCode = pi.LatestCharge.AuthorizationCode
		if pi.LatestCharge.Outcome != nil {
			result.ResponseCode = string(pi.LatestCharge.Outcome.NetworkStatus)
		}
	}

	switch pi.Status {
	case stripego.PaymentIntentStatusSucceeded, stripego.PaymentIntentStatusProcessing, stripego.PaymentIntentStatusRequiresCapture:
		result.Success = true
	default:
		result.Status = types.PaymentStatusFailed
		result.ErrorCode = string(pi.Status)
		result.ErrorMessage = "Payment authorization failed"
		if pi.LastPaymentError != nil {
			result.ErrorCode = lo.CoalesceOrEmpty(string(pi.LastPaymentError.Code), result.ErrorCode)
			result.ErrorMessage = lo.CoalesceOrEmpty(pi.LastPaymentError.Msg, result.ErrorMessage)
		}
	}

	c.logger.Infow("Stripe payment processed",
		"transaction_id", pi.ID,
		"status", pi.Status,
		"success", result.Success)

	return result, nil
}

func (c *Client) Refund(ctx context.Context, req *integration.RefundRequest) (*integration.RefundResult, error) {
	currency := strings.ToLower(lo.CoalesceOrEmpty(req.Currency, c.currency))
	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(req.TransactionID),
		Amount:        stripego.Int64(types.ToMinorUnits(req.Amount, currency)),
		Reason:        stripego.String(string(stripego.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("reason", req.Reason)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		var stripeErr *stripego.Error
		if ierr.As(err, &stripeErr) && stripeErr.HTTPStatusCode < http.StatusInternalServerError && stripeErr.HTTPStatusCode != 0 {
			return &integration.RefundResult{
				Success:      false,
				ErrorCode:    string(stripeErr.Code),
				ErrorMessage: lo.CoalesceOrEmpty(stripeErr.Msg, "Refund failed"),
			}, nil
		}
		c.logger.Errorw("failed to refund payment in Stripe", "error", err, "transaction_id", req.TransactionID)
		return nil, gatewayError(ctx, err, "Stripe refund request failed")
	}

	result := &integration.RefundResult{
		Success:     refund.Status != stripego.RefundStatusFailed && refund.Status != stripego.RefundStatusCanceled,
		RefundID:    refund.ID,
		Amount:      types.FromMinorUnits(refund.Amount, currency),
		ProcessedAt: time.Unix(refund.Created, 0).UTC(),
	}
	if !result.Success {
		result.ErrorCode = string(refund.Status)
		result.ErrorMessage = "Refund failed"
	}

	c.logger.Infow("Stripe refund processed",
		"transaction_id", req.TransactionID,
		"refund_id", refund.ID,
		"status", refund.Status)

	return result, nil
}

func (c *Client) Void(ctx context.Context, transactionID string) error {
	params := &stripego.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := c.api.PaymentIntents.Cancel(transactionID, params); err != nil {
		c.logger.Errorw("failed to cancel payment intent in Stripe", "error", err, "transaction_id", transactionID)
		return gatewayError(ctx, err, "Stripe void failed")
	}
	return nil
}

func (c *Client) GetTransactionStatus(ctx context.Context, transactionID string) (*integration.TransactionStatus, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.api.PaymentIntents.Get(transactionID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if ierr.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ierr.NewError("transaction not found").
				WithHintf("Transaction %s not found in Stripe", transactionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, gatewayError(ctx, err, "Stripe transaction lookup failed")
	}

	st := &integration.TransactionStatus{
		TransactionID: pi.ID,
		GatewayStatus: string(pi.Status),
		Status:        MapPaymentIntentStatus(pi.Status),
		Amount:        types.FromMinorUnits(pi.Amount, string(pi.Currency)),
	}
	if pi.LastPaymentError != nil {
		st.Reason = pi.LastPaymentError.Msg
	}
	return st, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalises payment
// intent and refund events.
func (c *Client) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*integration.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, headers.Get(types.HeaderStripeSignature), c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.logger.Warnw("rejected Stripe webhook", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}

	out := &integration.GatewayEvent{
		ID:         event.ID,
		RawType:    string(event.Type),
		Provider:   types.GatewayProviderStripe,
		ReceivedAt: time.Now().UTC(),
	}

	switch event.Type {
	case "payment_intent.amount_capturable_updated", "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, ierr.WithError(err).WithHint("Invalid webhook payload").Mark(ierr.ErrValidation)
		}
		out.TransactionID = pi.ID
		out.Amount = types.FromMinorUnits(pi.Amount, string(pi.Currency))
		switch event.Type {
		case "payment_intent.amount_capturable_updated":
			out.Type = types.GatewayEventAuthorized
		case "payment_intent.succeeded":
			out.Type = types.GatewayEventCaptured
		default:
			out.Type = types.GatewayEventFailed
			if pi.LastPaymentError != nil {
				out.Reason = pi.LastPaymentError.Msg
			}
		}
	case "refund.updated", "refund.created", "charge.refund.updated":
		var refund stripego.Refund
		if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
			return nil, ierr.WithError(err).WithHint("Invalid webhook payload").Mark(ierr.ErrValidation)
		}
		// only settled refunds complete the payment
		if refund.Status == stripego.RefundStatusSucceeded {
			out.Type = types.GatewayEventRefundCompleted
		}
		out.RefundTransactionID = refund.ID
		out.Amount = types.FromMinorUnits(refund.Amount, string(refund.Currency))
		if refund.PaymentIntent != nil {
			out.TransactionID = refund.PaymentIntent.ID
		}
	}

	return out, nil
}

// MapPaymentIntentStatus converts a PaymentIntent status to the local status.
func MapPaymentIntentStatus(status stripego.PaymentIntentStatus) types.PaymentStatus {
	switch status {
	case stripego.PaymentIntentStatusSucceeded:
		return types.PaymentStatusCompleted
	case stripego.PaymentIntentStatusRequiresCapture:
		return types.PaymentStatusAuthorized
	case stripego.PaymentIntentStatusProcessing:
		return types.PaymentStatusProcessing
	case stripego.PaymentIntentStatusCanceled:
		return types.PaymentStatusCancelled
	case stripego.PaymentIntentStatusRequiresPaymentMethod:
		return types.PaymentStatusFailed
	}
	return ""
}

func splitToken(token string) (customerID, paymentMethodID string) {
	if before, after, ok := strings.Cut(token, ":"); ok {
		return before, after
	}
	return "", token
}

// declineFrom turns a card error into a declined ChargeResult. Other errors
// return nil.
func declineFrom(err error) *integration.ChargeResult {
	var stripeErr *stripego.Error
	if !ierr.As(err, &stripeErr) || stripeErr.Type != stripego.ErrorTypeCard {
		return nil
	}
	code := string(stripeErr.Code)
	if stripeErr.DeclineCode != "" {
		code = string(stripeErr.DeclineCode)
	}
	result := &integration.ChargeResult{
		Success:      false,
		Status:       types.PaymentStatusFailed,
		ErrorCode:    code,
		ErrorMessage: lo.CoalesceOrEmpty(stripeErr.Msg, "Card declined"),
	}
	if stripeErr.PaymentIntent != nil {
		result.TransactionID = stripeErr.PaymentIntent.ID
	}
	return result
}

func gatewayError(ctx context.Context, err error, hint string) error {
	details := map[string]interface{}{
		"gateway_code":    "transport_error",
		"gateway_message": hint,
		"timeout":         ctx.Err() != nil,
	}
	var stripeErr *stripego.Error
	if ierr.As(err, &stripeErr) {
		details["gateway_code"] = lo.CoalesceOrEmpty(string(stripeErr.Code), string(stripeErr.Type))
		details["gateway_message"] = stripeErr.Msg
		details["http_status"] = stripeErr.HTTPStatusCode
	}
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(details).
		Mark(ierr.ErrGateway)
}
