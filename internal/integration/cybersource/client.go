package cybersource

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	paymentsPath     = "/pts/v2/payments"
	transactionsPath = "/tss/v2/transactions"

	headerMerchantID = "v-c-merchant-id"
	headerDate       = "v-c-date"
	headerSignature  = "v-c-signature"
	headerAPIKey     = "v-c-api-key"

	statusAuthorized = "AUTHORIZED"
)

// Client talks to the Cybersource REST API. Every request is signed with
// HMAC-SHA256 over the request date and body.
type Client struct {
	cfg      config.CybersourceConfig
	currency string
	logger   *logger.Logger
	// writes never retry; a retried charge could capture twice
	writes *retryablehttp.Client
	reads  *retryablehttp.Client
	now    func() time.Time
}

var _ integration.PaymentGateway = (*Client)(nil)

// NewClient creates a new Cybersource client
func NewClient(cfg *config.Configuration, log *logger.Logger) *Client {
	return &Client{
		cfg:      cfg.Gateway.Cybersource,
		currency: cfg.Gateway.Currency,
		logger:   log,
		writes:   newHTTPClient(cfg.Gateway.Timeout, 0, log),
		reads:    newHTTPClient(cfg.Gateway.Timeout, cfg.Gateway.Cybersource.MaxRetries, log),
		now:      time.Now,
	}
}

func newHTTPClient(timeout time.Duration, retries int, log *logger.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = log.GetRetryableHTTPLogger()
	// hand 5xx replies back instead of a generic "giving up" error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

func (c *Client) Provider() types.GatewayProvider {
	return types.GatewayProviderCybersource
}

// AuthorizeAndCapture charges the tokenized instrument in a single
// authorize-and-capture call.
func (c *Client) AuthorizeAndCapture(ctx context.Context, req *integration.ChargeRequest) (*integration.ChargeResult, error) {
	currency := lo.CoalesceOrEmpty(req.Currency, c.currency)
	amount := req.Amount.StringFixed(2)

	body := &PaymentRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: req.OrderReference},
		ProcessingInformation: processingInformation{
			Capture:           true,
			CommerceIndicator: "internet",
		},
		PaymentInformation: paymentInformation{
			Customer: customerInformation{CustomerID: req.PaymentToken},
		},
		OrderInformation: orderInformation{
			AmountDetails: amountDetails{TotalAmount: amount, Currency: currency},
			BillTo: &billTo{
				FirstName:          req.Customer.FirstName,
				LastName:           req.Customer.LastName,
				Email:              req.Customer.Email,
				Address1:           req.Customer.Line1,
				Locality:           req.Customer.City,
				AdministrativeArea: req.Customer.State,
				PostalCode:         req.Customer.ZipCode,
				Country:            lo.CoalesceOrEmpty(req.Customer.Country, "US"),
			},
		},
	}
	if req.Description != "" {
		body.OrderInformation.LineItems = []lineItem{{
			ProductName: req.Description,
			Quantity:    1,
			UnitPrice:   amount,
		}}
	}
	if req.IdempotencyKey != "" {
		body.MerchantDefinedInformation = []merchantDefinedField{{Key: "1", Value: req.IdempotencyKey}}
	}

	status, respBody, err := c.send(ctx, c.writes, http.MethodPost, paymentsPath, body)
	if err != nil {
		c.logger.Errorw("failed to create payment in Cybersource",
			"error", err,
			"order_reference", req.OrderReference)
		return nil, err
	}

	if status >= http.StatusInternalServerError {
		return nil, c.apiError(status, respBody, "Cybersource payment request failed")
	}

	var payment PaymentResponse
	if status >= http.StatusBadRequest {
		// 4xx replies describe a rejected request; treat them as a decline
		var errResp ErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		result := &integration.ChargeResult{
			Success:      false,
			Status:       types.PaymentStatusFailed,
			ErrorCode:    lo.CoalesceOrEmpty(errResp.Reason, strconv.Itoa(status)),
			ErrorMessage: lo.CoalesceOrEmpty(errResp.Message, "Payment authorization failed"),
		}
		c.logger.Warnw("Cybersource rejected payment",
			"status", status,
			"reason", errResp.Reason,
			"order_reference", req.OrderReference)
		return result, nil
	}

	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse Cybersource response").
			Mark(ierr.ErrGateway)
	}

	result := &integration.ChargeResult{
		TransactionID:     payment.ID,
		AuthorizationCode: payment.ProcessorInformation.ApprovalCode,
		ResponseCode:      payment.ProcessorInformation.ResponseCode,
		Amount:            parseAmount(payment.OrderInformation.AmountDetails.TotalAmount, req.Amount),
	}
	if payment.Status == statusAuthorized {
		result.Success = true
		result.Status = types.PaymentStatusCompleted
	} else {
		result.Status = types.PaymentStatusFailed
		result.ErrorCode = payment.Status
		result.ErrorMessage = "Payment authorization failed"
		if payment.ErrorInformation != nil {
			result.ErrorCode = lo.CoalesceOrEmpty(payment.ErrorInformation.Reason, payment.Status)
			result.ErrorMessage = lo.CoalesceOrEmpty(payment.ErrorInformation.Message, result.ErrorMessage)
		}
	}

	c.logger.Infow("Cybersource payment processed",
		"transaction_id", payment.ID,
		"status", payment.Status,
		"success", result.Success,
		"amount", amount)

	return result, nil
}

// Refund refunds part or all of a captured payment.
func (c *Client) Refund(ctx context.Context, req *integration.RefundRequest) (*integration.RefundResult, error) {
	body := &RefundRequest{
		ClientReferenceInformation: clientReferenceInformation{
			Code:     lo.CoalesceOrEmpty(req.IdempotencyKey, fmt.Sprintf("refund_%d", c.now().UnixMilli())),
			Comments: req.Reason,
		},
		OrderInformation: orderInformation{
			AmountDetails: amountDetails{
				TotalAmount: req.Amount.StringFixed(2),
				Currency:    lo.CoalesceOrEmpty(req.Currency, c.currency),
			},
		},
	}

	path := fmt.Sprintf("%s/%s/refunds", paymentsPath, req.TransactionID)
	status, respBody, err := c.send(ctx, c.writes, http.MethodPost, path, body)
	if err != nil {
		c.logger.Errorw("failed to refund payment in Cybersource",
			"error", err,
			"transaction_id", req.TransactionID)
		return nil, err
	}
	if status >= http.StatusInternalServerError {
		return nil, c.apiError(status, respBody, "Cybersource refund request failed")
	}
	if status >= http.StatusBadRequest {
		var errResp ErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		return &integration.RefundResult{
			Success:      false,
			ErrorCode:    lo.CoalesceOrEmpty(errResp.Reason, strconv.Itoa(status)),
			ErrorMessage: lo.CoalesceOrEmpty(errResp.Message, "Refund failed"),
		}, nil
	}

	var refund PaymentResponse
	if err := json.Unmarshal(respBody, &refund); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse Cybersource response").
			Mark(ierr.ErrGateway)
	}

	amount := req.Amount
	if refund.RefundAmountDetails != nil {
		amount = parseAmount(refund.RefundAmountDetails.RefundAmount, req.Amount)
	}

	result := &integration.RefundResult{
		Success:     isRefundAccepted(refund.Status),
		RefundID:    refund.ID,
		Amount:      amount,
		ProcessedAt: c.now().UTC(),
	}
	if !result.Success {
		result.ErrorCode = refund.Status
		result.ErrorMessage = "Refund failed"
		if refund.ErrorInformation != nil {
			result.ErrorMessage = lo.CoalesceOrEmpty(refund.ErrorInformation.Message, result.ErrorMessage)
		}
	}

	c.logger.Infow("Cybersource refund processed",
		"transaction_id", req.TransactionID,
		"refund_id", refund.ID,
		"status", refund.Status,
		"amount", amount.String())

	return result, nil
}

// Void cancels an authorization that has not settled.
func (c *Client) Void(ctx context.Context, transactionID string) error {
	body := &VoidRequest{
		ClientReferenceInformation: clientReferenceInformation{
			Code: fmt.Sprintf("void_%d", c.now().UnixMilli()),
		},
	}

	path := fmt.Sprintf("%s/%s/voids", paymentsPath, transactionID)
	status, respBody, err := c.send(ctx, c.writes, http.MethodPost, path, body)
	if err != nil {
		c.logger.Errorw("failed to void payment in Cybersource", "error", err, "transaction_id", transactionID)
		return err
	}
	if status < 200 || status >= 300 {
		return c.apiError(status, respBody, "Cybersource void failed")
	}

	c.logger.Infow("Cybersource payment voided", "transaction_id", transactionID)
	return nil
}

// GetTransactionStatus fetches the gateway's view of a transaction. Reads are
// retried on transient failures.
func (c *Client) GetTransactionStatus(ctx context.Context, transactionID string) (*integration.TransactionStatus, error) {
	path := fmt.Sprintf("%s/%s", transactionsPath, transactionID)
	status, respBody, err := c.send(ctx, c.reads, http.MethodGet, path, nil)
	if err != nil {
		c.logger.Errorw("failed to get transaction from Cybersource", "error", err, "transaction_id", transactionID)
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ierr.NewError("transaction not found").
			WithHint(fmt.Sprintf("Transaction %s not found in Cybersource", transactionID)).
			Mark(ierr.ErrNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, c.apiError(status, respBody, "Cybersource transaction lookup failed")
	}

	var txn TransactionResponse
	if err := json.Unmarshal(respBody, &txn); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse Cybersource response").
			Mark(ierr.ErrGateway)
	}

	result := &integration.TransactionStatus{
		TransactionID: lo.CoalesceOrEmpty(txn.ID, transactionID),
		GatewayStatus: txn.ApplicationInformation.Status,
		Status:        MapTransactionStatus(txn.ApplicationInformation.Status),
		Amount:        parseAmount(txn.OrderInformation.AmountDetails.TotalAmount, decimal.Zero),
	}
	if txn.ErrorInformation != nil {
		result.Reason = txn.ErrorInformation.Message
	}

	c.logger.Debugw("fetched transaction from Cybersource",
		"transaction_id", transactionID,
		"gateway_status", result.GatewayStatus)

	return result, nil
}

// send signs and executes a request and returns the status code and body.
// Transport failures come back as gateway errors.
func (c *Client) send(ctx context.Context, client *retryablehttp.Client, method, path string, body interface{}) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, ierr.WithError(err).
				WithHint("Invalid gateway request data").
				Mark(ierr.ErrInternal)
		}
	} else {
		payload = []byte("{}")
	}

	date := strconv.FormatInt(c.now().UnixMilli(), 10)

	var reqBody interface{}
	if method != http.MethodGet {
		reqBody = payload
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reqBody)
	if err != nil {
		return 0, nil, ierr.WithError(err).
			WithHint("Failed to create gateway request").
			Mark(ierr.ErrInternal)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerMerchantID, c.cfg.MerchantID)
	httpReq.Header.Set(headerDate, date)
	httpReq.Header.Set(headerSignature, Sign(c.cfg.SecretKey, date, payload))
	httpReq.Header.Set(headerAPIKey, c.cfg.APIKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		hint := "Unable to connect to the payment gateway"
		timedOut := ctx.Err() != nil
		if timedOut {
			hint = "Payment gateway did not respond in time"
		}
		return 0, nil, ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]interface{}{
				"gateway_code":    "transport_error",
				"gateway_message": hint,
				"timeout":         timedOut,
			}).
			Mark(ierr.ErrGateway)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, ierr.WithError(err).
			WithHint("Failed to read gateway response").
			Mark(ierr.ErrGateway)
	}

	return resp.StatusCode, respBody, nil
}

func (c *Client) apiError(status int, respBody []byte, hint string) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
		c.logger.Errorw("Cybersource API error", "status", status, "reason", errResp.Reason, "message", errResp.Message)
		return ierr.NewError(errResp.Message).
			WithHint(hint).
			WithReportableDetails(map[string]interface{}{
				"gateway_code":    lo.CoalesceOrEmpty(errResp.Reason, strconv.Itoa(status)),
				"gateway_message": errResp.Message,
				"http_status":     status,
			}).
			Mark(ierr.ErrGateway)
	}
	return ierr.NewError("Cybersource API error").
		WithHint(fmt.Sprintf("%s: HTTP status %d", hint, status)).
		WithReportableDetails(map[string]interface{}{
			"gateway_code": strconv.Itoa(status),
			"http_status":  status,
		}).
		Mark(ierr.ErrGateway)
}

// Sign returns base64(HMAC-SHA256(secret, date+body)).
func Sign(secret, date string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(date))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// MapTransactionStatus converts a Cybersource application status to the local
// payment status. Unknown statuses map to "".
func MapTransactionStatus(status string) types.PaymentStatus {
	switch strings.ToUpper(status) {
	case statusAuthorized:
		// charges are always sent with capture=true
		return types.PaymentStatusCompleted
	case "TRANSMITTED", "SETTLED", "CAPTURED":
		return types.PaymentStatusCaptured
	case "PENDING", "PENDING_REVIEW", "AUTHORIZED_PENDING_REVIEW":
		return types.PaymentStatusProcessing
	case "DECLINED", "FAILED", "INVALID_REQUEST", "AUTHORIZED_RISK_DECLINED":
		return types.PaymentStatusFailed
	case "VOIDED", "REVERSED", "CANCELLED":
		return types.PaymentStatusCancelled
	case "REFUNDED":
		return types.PaymentStatusRefunded
	}
	return ""
}

func isRefundAccepted(status string) bool {
	switch strings.ToUpper(status) {
	case "PENDING", "REFUNDED", "TRANSMITTED", "SETTLED":
		return true
	}
	return false
}

func parseAmount(s string, fallback decimal.Decimal) decimal.Decimal {
	if s == "" {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return d
}
