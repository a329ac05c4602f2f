package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rentpay/rentpay/internal/cache"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// GatewayWebhookService applies asynchronous gateway notifications to the
// ledger.
type GatewayWebhookService interface {
	// HandleWebhook verifies, de-duplicates and applies one delivery. Unknown
	// events and transactions are acknowledged and ignored; only store
	// failures are returned so the gateway redelivers.
	HandleWebhook(ctx context.Context, provider types.GatewayProvider, payload []byte, headers http.Header) error
	OnGatewayEvent(ctx context.Context, event *integration.GatewayEvent) error
}

type gatewayWebhookService struct {
	ServiceParams
}

func NewGatewayWebhookService(params ServiceParams) GatewayWebhookService {
	return &gatewayWebhookService{ServiceParams: params}
}

func (s *gatewayWebhookService) HandleWebhook(ctx context.Context, provider types.GatewayProvider, payload []byte, headers http.Header) error {
	log := s.Logger.WithContext(ctx)

	gateway, err := s.Gateways.Get(provider)
	if err != nil {
		return err
	}

	event, err := gateway.ParseWebhook(ctx, payload, headers)
	if err != nil {
		log.Warnw("rejected gateway webhook",
			"provider", provider,
			"error", err)
		return err
	}
	if event.Provider == "" {
		event.Provider = provider
	}

	key := cache.WebhookEventKey(string(event.Provider), event.ID)
	if event.ID != "" && s.Cache != nil {
		ttl := lo.Ternary(s.Config.Cache.WebhookDedupeTTL > 0, s.Config.Cache.WebhookDedupeTTL, cache.ExpiryWebhookEvent)
		first, err := s.Cache.SetIfAbsent(ctx, key, lo.ToPtr(s.Now().UTC()), ttl)
		if err != nil {
			// dedupe is best effort; status transitions are idempotent anyway
			log.Warnw("webhook dedupe unavailable",
				"event_id", event.ID,
				"error", err)
		} else if !first {
			fields := []interface{}{"event_id", event.ID, "provider", event.Provider}
			if v, ok := s.Cache.Get(ctx, key); ok {
				if seenAt, ok := cache.UnmarshalCacheValue[time.Time](v); ok {
					fields = append(fields, "first_seen_at", *seenAt)
				}
			}
			log.Infow("ignoring duplicate gateway webhook", fields...)
			return nil
		}
	}

	if err := s.OnGatewayEvent(ctx, event); err != nil {
		if event.ID != "" && s.Cache != nil {
			s.Cache.Delete(ctx, key)
		}
		return err
	}
	return nil
}

func (s *gatewayWebhookService) OnGatewayEvent(ctx context.Context, event *integration.GatewayEvent) error {
	log := s.Logger.WithContext(ctx).With(
		"event_id", event.ID,
		"event_type", event.Type,
		"raw_type", event.RawType,
		"transaction_id", event.TransactionID,
	)

	var (
		payment *rentpayment.RentPayment
		err     error
	)
	switch event.Type {
	case types.GatewayEventAuthorized, types.GatewayEventCaptured, types.GatewayEventFailed:
		payment, err = s.RentPaymentRepo.GetByGatewayTransactionID(ctx, event.TransactionID)
	case types.GatewayEventRefundCompleted:
		payment, err = s.findRefunded(ctx, event)
	default:
		log.Infow("ignoring unhandled gateway event")
		return nil
	}
	if err != nil {
		if ierr.IsNotFound(err) {
			log.Warnw("gateway event for unknown transaction")
			return nil
		}
		return err
	}

	switch event.Type {
	case types.GatewayEventAuthorized:
		_, err = applyPaymentStatus(ctx, s.ServiceParams, payment, types.PaymentStatusAuthorized, "", "webhook")
	case types.GatewayEventCaptured:
		_, err = applyPaymentStatus(ctx, s.ServiceParams, payment, types.PaymentStatusCaptured, "", "webhook")
	case types.GatewayEventFailed:
		_, err = applyPaymentStatus(ctx, s.ServiceParams, payment, types.PaymentStatusFailed, lo.CoalesceOrEmpty(event.Reason, reasonPaymentFailed), "webhook")
	case types.GatewayEventRefundCompleted:
		err = s.applyRefund(ctx, payment, event)
	}
	return err
}

func (s *gatewayWebhookService) findRefunded(ctx context.Context, event *integration.GatewayEvent) (*rentpayment.RentPayment, error) {
	if event.RefundTransactionID != "" {
		payment, err := s.RentPaymentRepo.GetByRefundTransactionID(ctx, event.RefundTransactionID)
		if err == nil || !ierr.IsNotFound(err) || event.TransactionID == "" {
			return payment, err
		}
	}
	return s.RentPaymentRepo.GetByGatewayTransactionID(ctx, event.TransactionID)
}

// applyRefund records a refund completed outside RefundPayment, such as one
// issued from the gateway dashboard. Refunds already recorded are left alone.
func (s *gatewayWebhookService) applyRefund(ctx context.Context, payment *rentpayment.RentPayment, event *integration.GatewayEvent) error {
	if payment.PaymentStatus == types.PaymentStatusRefunded {
		return nil
	}
	if !payment.CanTransitionTo(types.PaymentStatusRefunded) {
		s.Logger.WithContext(ctx).Warnw("ignoring refund for payment in non refundable state",
			"payment_id", payment.ID,
			"status", payment.PaymentStatus)
		return nil
	}

	refundedAt := event.ReceivedAt
	if refundedAt.IsZero() {
		refundedAt = s.Now().UTC()
	}
	payment.Refund = &rentpayment.Refund{
		Amount:        lo.Ternary(event.Amount.IsPositive(), event.Amount, payment.TotalAmount),
		Date:          refundedAt,
		Reason:        lo.CoalesceOrEmpty(event.Reason, "Refunded at gateway"),
		TransactionID: event.RefundTransactionID,
	}
	changed, err := applyPaymentStatus(ctx, s.ServiceParams, payment, types.PaymentStatusRefunded, "", "webhook")
	if err != nil || !changed {
		return err
	}

	publishPaymentEvent(ctx, s.ServiceParams, types.EventPaymentRefunded, payment, map[string]interface{}{
		"refund_amount": payment.Refund.Amount.String(),
		"refund_id":     payment.Refund.TransactionID,
	})
	return nil
}
