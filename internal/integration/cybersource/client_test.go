package cybersource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.July, 1, 2, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GetDefaultConfig()
	cfg.Gateway.Timeout = 2 * time.Second
	cfg.Gateway.Cybersource = config.CybersourceConfig{
		BaseURL:       srv.URL,
		MerchantID:    "merchant_1",
		APIKey:        "key_1",
		SecretKey:     "secret_1",
		WebhookSecret: "whsec_1",
		MaxRetries:    2,
	}
	c := NewClient(cfg, logger.NewNopLogger())
	c.now = func() time.Time { return fixedNow }
	c.reads.RetryWaitMin = time.Millisecond
	c.reads.RetryWaitMax = time.Millisecond
	return c
}

func chargeRequest() *integration.ChargeRequest {
	return &integration.ChargeRequest{
		IdempotencyKey: "rpay_1",
		Amount:         decimal.RequireFromString("2500"),
		PaymentToken:   "tok_1",
		OrderReference: "rent_lease_1_7_2025",
		Description:    "Rent payment for 7/2025",
	}
}

func TestAuthorizeAndCapture_Approved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, paymentsPath, r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		date := r.Header.Get(headerDate)
		assert.Equal(t, "merchant_1", r.Header.Get(headerMerchantID))
		assert.Equal(t, "key_1", r.Header.Get(headerAPIKey))
		assert.Equal(t, Sign("secret_1", date, body), r.Header.Get(headerSignature))

		var req PaymentRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, req.ProcessingInformation.Capture)
		assert.Equal(t, "2500.00", req.OrderInformation.AmountDetails.TotalAmount)
		assert.Equal(t, "USD", req.OrderInformation.AmountDetails.Currency)
		assert.Equal(t, "tok_1", req.PaymentInformation.Customer.CustomerID)
		assert.Equal(t, "rent_lease_1_7_2025", req.ClientReferenceInformation.Code)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "txn_123",
			"status": "AUTHORIZED",
			"processorInformation": {"approvalCode": "831000", "responseCode": "00"},
			"orderInformation": {"amountDetails": {"totalAmount": "2500.00", "currency": "USD"}}
		}`))
	})

	res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "txn_123", res.TransactionID)
	assert.Equal(t, "831000", res.AuthorizationCode)
	assert.Equal(t, "00", res.ResponseCode)
	assert.Equal(t, types.PaymentStatusCompleted, res.Status)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(2500)))
}

func TestAuthorizeAndCapture_Declined(t *testing.T) {
	t.Run("declined status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"txn_9","status":"DECLINED","errorInformation":{"reason":"INSUFFICIENT_FUND","message":"Insufficient funds"}}`))
		})
		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "INSUFFICIENT_FUND", res.ErrorCode)
		assert.Equal(t, "Insufficient funds", res.ErrorMessage)
		assert.Equal(t, types.PaymentStatusFailed, res.Status)
	})

	t.Run("bad request", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"INVALID_REQUEST","reason":"INVALID_DATA","message":"Declined - invalid token"}`))
		})
		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "INVALID_DATA", res.ErrorCode)
	})
}

func TestAuthorizeAndCapture_NeverRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())
	require.Error(t, err)
	assert.True(t, ierr.IsGateway(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAuthorizeAndCapture_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.AuthorizeAndCapture(ctx, chargeRequest())
	require.Error(t, err)
	assert.True(t, ierr.IsGateway(err))
	assert.Equal(t, true, ierr.GetReportableDetails(err)["timeout"])
}

func TestRefund(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pts/v2/payments/txn_123/refunds", r.URL.Path)
		var req RefundRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "1000.00", req.OrderInformation.AmountDetails.TotalAmount)
		assert.Equal(t, "Moved out early", req.ClientReferenceInformation.Comments)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"rf_1","status":"PENDING","refundAmountDetails":{"refundAmount":"1000.00","currency":"USD"}}`))
	})

	res, err := c.Refund(context.Background(), &integration.RefundRequest{
		TransactionID: "txn_123",
		Amount:        decimal.NewFromInt(1000),
		Reason:        "Moved out early",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "rf_1", res.RefundID)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(1000)))
}

func TestVoid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pts/v2/payments/txn_123/voids", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"void_1","status":"VOIDED"}`))
	})
	require.NoError(t, c.Void(context.Background(), "txn_123"))
}

func TestGetTransactionStatus(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"id":"txn_123","applicationInformation":{"status":"SETTLED"},"orderInformation":{"amountDetails":{"totalAmount":"2500.00"}}}`))
		})

		st, err := c.GetTransactionStatus(context.Background(), "txn_123")
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, "SETTLED", st.GatewayStatus)
		assert.Equal(t, types.PaymentStatusCaptured, st.Status)
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.GetTransactionStatus(context.Background(), "missing")
		assert.True(t, ierr.IsNotFound(err))
	})
}

func TestMapTransactionStatus(t *testing.T) {
	tests := []struct {
		in   string
		want types.PaymentStatus
	}{
		{"AUTHORIZED", types.PaymentStatusCompleted},
		{"SETTLED", types.PaymentStatusCaptured},
		{"TRANSMITTED", types.PaymentStatusCaptured},
		{"PENDING", types.PaymentStatusProcessing},
		{"DECLINED", types.PaymentStatusFailed},
		{"VOIDED", types.PaymentStatusCancelled},
		{"REFUNDED", types.PaymentStatusRefunded},
		{"something-new", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MapTransactionStatus(tt.in))
		})
	}
}

func TestParseWebhook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	payload := []byte(`{"eventType":"payment.failed","data":{"id":"txn_123","reason":"ACH return R01"}}`)
	headers := http.Header{}
	headers.Set(types.HeaderCybersourceSignature, SignWebhook("whsec_1", payload))

	event, err := c.ParseWebhook(context.Background(), payload, headers)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventFailed, event.Type)
	assert.Equal(t, "txn_123", event.TransactionID)
	assert.Equal(t, "ACH return R01", event.Reason)
	assert.Equal(t, "payment.failed:txn_123", event.ID)

	refund := []byte(`{"id":"evt_7","eventType":"refund.completed","data":{"id":"rf_1","originalTransactionId":"txn_123"}}`)
	headers.Set(types.HeaderCybersourceSignature, SignWebhook("whsec_1", refund))
	event, err = c.ParseWebhook(context.Background(), refund, headers)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventRefundCompleted, event.Type)
	assert.Equal(t, "rf_1", event.RefundTransactionID)
	assert.Equal(t, "txn_123", event.TransactionID)
	assert.Equal(t, "evt_7", event.ID)

	headers.Set(types.HeaderCybersourceSignature, SignWebhook("wrong", payload))
	_, err = c.ParseWebhook(context.Background(), payload, headers)
	assert.True(t, ierr.IsPermissionDenied(err))
}
