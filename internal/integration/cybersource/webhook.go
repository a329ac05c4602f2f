package cybersource

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var eventTypes = map[string]types.GatewayEventType{
	"payment.authorized": types.GatewayEventAuthorized,
	"payment.captured":   types.GatewayEventCaptured,
	"payment.failed":     types.GatewayEventFailed,
	"refund.completed":   types.GatewayEventRefundCompleted,
}

// ParseWebhook verifies the X-Cybersource-Signature header and decodes the
// notification. Event types this service does not handle come back with an
// empty Type so the caller can log and acknowledge them.
func (c *Client) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*integration.GatewayEvent, error) {
	signature := headers.Get(types.HeaderCybersourceSignature)
	if err := c.VerifyWebhookSignature(payload, signature); err != nil {
		c.logger.Warnw("rejected Cybersource webhook", "error", err)
		return nil, err
	}

	var body WebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}

	event := &integration.GatewayEvent{
		// deliveries without an id are keyed by what they describe
		ID:         lo.CoalesceOrEmpty(body.ID, body.EventType+":"+body.Data.ID),
		Type:       eventTypes[body.EventType],
		RawType:    body.EventType,
		Provider:   types.GatewayProviderCybersource,
		Reason:     body.Data.Reason,
		Amount:     parseAmount(body.Data.Amount, decimal.Zero),
		ReceivedAt: c.now().UTC(),
	}

	if event.Type == types.GatewayEventRefundCompleted {
		event.RefundTransactionID = body.Data.ID
		event.TransactionID = body.Data.OriginalTransactionID
	} else {
		event.TransactionID = body.Data.ID
	}

	return event, nil
}

// VerifyWebhookSignature checks base64(HMAC-SHA256(secret, payload)) in
// constant time. A hex encoded signature is accepted as well.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) error {
	secret := lo.CoalesceOrEmpty(c.cfg.WebhookSecret, c.cfg.SecretKey)
	if secret == "" {
		return ierr.NewError("webhook secret not configured").
			WithHint("Cybersource webhook secret is not configured").
			Mark(ierr.ErrPermissionDenied)
	}
	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Webhook signature header is required").
			Mark(ierr.ErrPermissionDenied)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	signature = strings.TrimSpace(signature)
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(got) != len(expected) {
		got, err = hex.DecodeString(signature)
	}
	if err != nil || !hmac.Equal(got, expected) {
		return ierr.NewError("invalid webhook signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// SignWebhook produces the signature a valid delivery carries.
func SignWebhook(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
