package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rentpay/rentpay/internal/api/dto"
	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PaymentSettlementService charges rent and keeps the ledger in step with the
// gateway.
type PaymentSettlementService interface {
	// SettlePayment makes one attempt to settle one lease period. On a gateway
	// failure the failed payment is returned together with the error.
	SettlePayment(ctx context.Context, req *SettlePaymentRequest) (*rentpayment.RentPayment, error)
	InitiateOneTimePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error)
	// ProcessRecurringPayment settles today's period for a schedule.
	ProcessRecurringPayment(ctx context.Context, schedule *recurringschedule.RecurringSchedule) (*rentpayment.RentPayment, error)
	RefundPayment(ctx context.Context, paymentID string, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error)
	// GetPaymentStatus returns a payment owned by tenantID; an empty tenantID
	// skips the ownership check.
	GetPaymentStatus(ctx context.Context, paymentID string, tenantID string, reconcile bool) (*dto.PaymentResponse, error)
	ReconcileStatus(ctx context.Context, paymentID string) (*rentpayment.RentPayment, error)
	ListPayments(ctx context.Context, filter *types.RentPaymentFilter) (*dto.ListPaymentsResponse, error)
}

// SettlePaymentRequest is the internal settlement input shared by tenant
// payments and auto-pay.
type SettlePaymentRequest struct {
	LeaseID             string
	TenantID            string
	PaymentMethodID     string
	Amount              decimal.Decimal
	LateFeeAmount       decimal.Decimal
	ProcessingFee       decimal.Decimal
	PaymentMonth        int
	PaymentYear         int
	IsRecurring         bool
	RecurringScheduleID string
	Description         string
	OrderReference      string
}

func (r *SettlePaymentRequest) Validate() error {
	if r.LeaseID == "" || r.TenantID == "" || r.PaymentMethodID == "" {
		return ierr.NewError("lease, tenant and payment method are required").
			WithHint("Lease, tenant and payment method are required").
			Mark(ierr.ErrValidation)
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{"amount": r.Amount.String()}).
			Mark(ierr.ErrValidation)
	}
	if r.LateFeeAmount.IsNegative() || r.ProcessingFee.IsNegative() {
		return ierr.NewError("fees must not be negative").
			WithHint("Late fee and processing fee must not be negative").
			Mark(ierr.ErrValidation)
	}
	if r.IsRecurring && r.RecurringScheduleID == "" {
		return ierr.NewError("recurring payment without schedule").
			WithHint("Recurring payments must reference their schedule").
			Mark(ierr.ErrValidation)
	}
	return rentpayment.ValidatePeriod(r.PaymentMonth, r.PaymentYear)
}

const (
	reasonPaymentDeclined       = "Payment declined"
	reasonPaymentFailed         = "Payment failed"
	reasonSettlementInterrupted = "Settlement interrupted"
	defaultRefundReason         = "Refund requested"
)

type paymentSettlementService struct {
	ServiceParams
}

func NewPaymentSettlementService(params ServiceParams) PaymentSettlementService {
	return &paymentSettlementService{ServiceParams: params}
}

func (s *paymentSettlementService) SettlePayment(ctx context.Context, req *SettlePaymentRequest) (*rentpayment.RentPayment, error) {
	if req == nil {
		return nil, ierr.NewError("request is required").
			WithHint("Settlement request is required").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	l, pm, err := s.loadPreconditions(ctx, req)
	if err != nil {
		return nil, err
	}

	gateway, err := s.Gateways.Get(pm.GatewayProvider)
	if err != nil {
		return nil, err
	}

	payment := &rentpayment.RentPayment{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RENT_PAYMENT),
		LeaseID:              l.ID,
		TenantID:             req.TenantID,
		PaymentMethodID:      pm.ID,
		Amount:               req.Amount,
		LateFeeAmount:        req.LateFeeAmount,
		ProcessingFee:        req.ProcessingFee,
		Currency:             lo.CoalesceOrEmpty(s.Config.Gateway.Currency, types.DefaultCurrency),
		PaymentMonth:         req.PaymentMonth,
		PaymentYear:          req.PaymentYear,
		RentDueDate:          lo.ToPtr(l.DueDate(time.Month(req.PaymentMonth), req.PaymentYear)),
		PaymentType:          pm.PaymentType,
		PaymentStatus:        types.PaymentStatusProcessing,
		GatewayProvider:      gateway.Provider(),
		GatewayReferenceCode: req.OrderReference,
		IsRecurring:          req.IsRecurring,
		RecurringScheduleID:  req.RecurringScheduleID,
		MaskedPaymentInfo:    pm.Masked(),
		Description:          req.Description,
		BaseModel:            types.GetDefaultBaseModel(ctx),
	}
	// total is always recomputed here, never taken from the caller
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, payment); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("settling rent payment",
		"payment_id", payment.ID,
		"lease_id", payment.LeaseID,
		"period", payment.PeriodLabel(),
		"total_amount", payment.TotalAmount.String(),
		"is_recurring", payment.IsRecurring,
		"provider", gateway.Provider())

	gatewayCtx, cancel := context.WithTimeout(ctx, s.Config.Gateway.Timeout)
	defer cancel()

	result, chargeErr := gateway.AuthorizeAndCapture(gatewayCtx, &integration.ChargeRequest{
		IdempotencyKey: payment.ID,
		Amount:         payment.TotalAmount,
		Currency:       payment.Currency,
		PaymentToken:   pm.Token,
		PaymentType:    pm.PaymentType,
		OrderReference: req.OrderReference,
		Description:    req.Description,
		Customer: integration.Customer{
			Line1:   pm.BillingAddress.Line1,
			City:    pm.BillingAddress.City,
			State:   pm.BillingAddress.State,
			ZipCode: pm.BillingAddress.ZipCode,
			Country: pm.BillingAddress.Country,
		},
		Metadata: map[string]string{
			"payment_id": payment.ID,
			"lease_id":   payment.LeaseID,
			"period":     fmt.Sprintf("%d-%02d", payment.PaymentYear, payment.PaymentMonth),
		},
	})

	if chargeErr != nil {
		return s.recordFailure(ctx, payment, chargeErr, "", ierr.GetHint(chargeErr))
	}
	if !result.Success {
		reason := lo.CoalesceOrEmpty(result.ErrorMessage, result.ErrorCode, reasonPaymentDeclined)
		payment.GatewayTransactionID = result.TransactionID
		payment.ResponseCode = result.ResponseCode
		return s.recordFailure(ctx, payment, nil, result.ErrorCode, reason)
	}

	return s.recordSuccess(ctx, gateway, payment, result)
}

// loadPreconditions checks ownership and status of the lease and payment
// method. Foreign rows are reported as not found.
func (s *paymentSettlementService) loadPreconditions(ctx context.Context, req *SettlePaymentRequest) (*lease.Lease, *paymentmethod.PaymentMethod, error) {
	now := s.Now()

	l, err := s.LeaseRepo.Get(ctx, req.LeaseID)
	if err != nil {
		return nil, nil, err
	}
	if l.TenantID != req.TenantID {
		return nil, nil, ierr.NewError("lease does not belong to tenant").
			WithHintf("Lease %s not found", req.LeaseID).
			Mark(ierr.ErrNotFound)
	}
	if !l.IsActive(now) {
		return nil, nil, ierr.NewError("lease is not active").
			WithHint("Payments can only be made against an active lease").
			WithReportableDetails(map[string]interface{}{
				"lease_id": l.ID,
				"status":   l.Status,
			}).
			Mark(ierr.ErrValidation)
	}

	pm, err := s.PaymentMethodRepo.Get(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, nil, err
	}
	if pm.TenantID != req.TenantID || pm.Status == types.PaymentMethodStatusDeleted {
		return nil, nil, ierr.NewError("payment method does not belong to tenant").
			WithHintf("Payment method %s not found", req.PaymentMethodID).
			Mark(ierr.ErrNotFound)
	}
	if !pm.IsUsable(now) {
		return nil, nil, ierr.NewError("payment method is not usable").
			WithHint("Payment method is expired or inactive").
			WithReportableDetails(map[string]interface{}{
				"payment_method_id": pm.ID,
				"status":            pm.Status,
			}).
			Mark(ierr.ErrValidation)
	}
	return l, pm, nil
}

// reserve inserts the processing row for the period. The advisory lock and
// the store's own guard make check-and-insert atomic.
func (s *paymentSettlementService) reserve(ctx context.Context, payment *rentpayment.RentPayment) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(types.LockScopeRentPaymentPeriod, map[string]interface{}{
				"lease_id": payment.LeaseID,
				"month":    payment.PaymentMonth,
				"year":     payment.PaymentYear,
			}),
		})
		if err != nil {
			return err
		}

		existing, err := s.RentPaymentRepo.FindActiveForPeriod(ctx, payment.LeaseID, payment.PaymentMonth, payment.PaymentYear)
		if err != nil {
			return err
		}
		if existing != nil {
			return ierr.NewError("duplicate period payment").
				WithHintf("Payment for %s has already been made or is in progress", payment.PeriodLabel()).
				WithReportableDetails(map[string]interface{}{
					"lease_id":            payment.LeaseID,
					"payment_month":       payment.PaymentMonth,
					"payment_year":        payment.PaymentYear,
					"existing_payment_id": existing.ID,
					"existing_status":     existing.PaymentStatus,
				}).
				Mark(ierr.ErrDuplicatePeriodPayment)
		}

		return s.RentPaymentRepo.Create(ctx, payment)
	})
}

// recordFailure marks the reserved row failed and returns it with a gateway
// error carrying the gateway's own code and message.
func (s *paymentSettlementService) recordFailure(ctx context.Context, payment *rentpayment.RentPayment, cause error, code, reason string) (*rentpayment.RentPayment, error) {
	log := s.Logger.WithContext(ctx)
	reason = lo.CoalesceOrEmpty(reason, reasonPaymentFailed)

	payment.PaymentStatus = types.PaymentStatusFailed
	payment.FailureReason = reason
	payment.Touch(ctx)
	if err := s.RentPaymentRepo.Update(ctx, payment); err != nil {
		// the row stays processing; reconciliation resolves it later
		log.Errorw("failed to record failed payment",
			"payment_id", payment.ID,
			"error", err)
	}

	log.Warnw("rent payment failed",
		"payment_id", payment.ID,
		"lease_id", payment.LeaseID,
		"gateway_code", code,
		"reason", reason,
		"error", cause)

	s.publish(ctx, types.EventPaymentFailed, payment, nil)

	details := map[string]interface{}{}
	if cause != nil {
		details = lo.Assign(details, ierr.GetReportableDetails(cause))
	}
	details["payment_id"] = payment.ID
	if code != "" {
		details["gateway_code"] = code
	}
	if _, ok := details["gateway_message"]; !ok {
		details["gateway_message"] = reason
	}

	builder := ierr.NewError("payment failed")
	if cause != nil {
		builder = ierr.WithError(cause)
	}
	return payment, builder.
		WithHint(reason).
		WithReportableDetails(details).
		Mark(ierr.ErrGateway)
}

func (s *paymentSettlementService) recordSuccess(ctx context.Context, gateway integration.PaymentGateway, payment *rentpayment.RentPayment, result *integration.ChargeResult) (*rentpayment.RentPayment, error) {
	log := s.Logger.WithContext(ctx)

	status := result.Status
	if !lo.Contains([]types.PaymentStatus{types.PaymentStatusAuthorized, types.PaymentStatusCaptured, types.PaymentStatusCompleted}, status) {
		status = types.PaymentStatusCompleted
	}

	payment.PaymentStatus = status
	payment.GatewayTransactionID = result.TransactionID
	payment.AuthorizationCode = result.AuthorizationCode
	payment.ResponseCode = result.ResponseCode
	payment.PaymentDate = lo.ToPtr(s.Now().UTC())
	payment.Touch(ctx)

	if err := s.RentPaymentRepo.Update(ctx, payment); err != nil {
		// the charge went through but the ledger does not show it; void it
		// rather than leave an unrecorded charge behind
		log.Errorw("failed to record successful charge, voiding",
			"payment_id", payment.ID,
			"transaction_id", result.TransactionID,
			"error", err)
		if voidErr := gateway.Void(context.WithoutCancel(ctx), result.TransactionID); voidErr != nil {
			log.Errorw("failed to void unrecorded charge",
				"payment_id", payment.ID,
				"transaction_id", result.TransactionID,
				"error", voidErr)
			s.Sentry.CaptureExceptionWithContext(ctx, voidErr, map[string]string{"payment_id": payment.ID})
		}
		return nil, err
	}

	log.Infow("rent payment settled",
		"payment_id", payment.ID,
		"lease_id", payment.LeaseID,
		"transaction_id", payment.GatewayTransactionID,
		"status", payment.PaymentStatus)

	s.publish(ctx, types.EventPaymentCompleted, payment, nil)
	return payment, nil
}

func (s *paymentSettlementService) InitiateOneTimePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lateFee := decimal.Zero
	if req.LateFeeAmount != nil {
		lateFee = *req.LateFeeAmount
	} else {
		l, err := s.LeaseRepo.Get(ctx, req.LeaseID)
		if err != nil {
			return nil, err
		}
		if l.TenantID == req.TenantID {
			lateFee = l.LateFeeFor(time.Month(req.PaymentMonth), req.PaymentYear, s.Now())
		}
	}

	payment, err := s.SettlePayment(ctx, &SettlePaymentRequest{
		LeaseID:         req.LeaseID,
		TenantID:        req.TenantID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          req.Amount,
		LateFeeAmount:   lateFee,
		ProcessingFee:   req.ProcessingFee,
		PaymentMonth:    req.PaymentMonth,
		PaymentYear:     req.PaymentYear,
		Description:     lo.CoalesceOrEmpty(req.Description, fmt.Sprintf("Rent payment for %d/%d", req.PaymentMonth, req.PaymentYear)),
		OrderReference:  req.OrderReference(),
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(payment), nil
}

func (s *paymentSettlementService) ProcessRecurringPayment(ctx context.Context, schedule *recurringschedule.RecurringSchedule) (*rentpayment.RentPayment, error) {
	if schedule == nil {
		return nil, ierr.NewError("schedule is required").
			WithHint("Recurring schedule is required").
			Mark(ierr.ErrValidation)
	}

	// rent is read at execution time so lease changes apply to the next run
	l, err := s.LeaseRepo.Get(ctx, schedule.LeaseID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	month, year := int(today.Month()), today.Year()

	return s.SettlePayment(types.WithSystemActor(ctx), &SettlePaymentRequest{
		LeaseID:             schedule.LeaseID,
		TenantID:            schedule.TenantID,
		PaymentMethodID:     schedule.PaymentMethodID,
		Amount:              l.MonthlyRent,
		PaymentMonth:        month,
		PaymentYear:         year,
		IsRecurring:         true,
		RecurringScheduleID: schedule.ID,
		Description:         fmt.Sprintf("Auto-pay rent for %d/%d", month, year),
		OrderReference:      fmt.Sprintf("recurring_%s_%d_%d", schedule.ID, month, year),
	})
}

func (s *paymentSettlementService) RefundPayment(ctx context.Context, paymentID string, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error) {
	if paymentID == "" {
		return nil, ierr.NewError("payment id is required").
			WithHint("Please provide a valid payment ID").
			Mark(ierr.ErrValidation)
	}
	if req == nil {
		req = &dto.RefundPaymentRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var refunded *rentpayment.RentPayment
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// fail fast: a second refund of the same payment is never queued
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key:     types.GenerateLockKey(types.LockScopeRentPaymentRefund, map[string]interface{}{"payment_id": paymentID}),
			Timeout: lo.ToPtr(time.Duration(0)),
		}); err != nil {
			return err
		}

		payment, err := s.RentPaymentRepo.Get(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.IsRefundable() {
			return ierr.NewError("payment is not refundable").
				WithHintf("Only completed or captured payments can be refunded, payment is %s", payment.PaymentStatus).
				WithReportableDetails(map[string]interface{}{
					"payment_id": payment.ID,
					"status":     payment.PaymentStatus,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		amount := payment.TotalAmount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount.GreaterThan(payment.TotalAmount) {
			return ierr.NewError("refund exceeds original amount").
				WithHintf("Refund amount %s exceeds the payment total %s", amount.String(), payment.TotalAmount.String()).
				WithReportableDetails(map[string]interface{}{
					"payment_id":    payment.ID,
					"refund_amount": amount.String(),
					"total_amount":  payment.TotalAmount.String(),
				}).
				Mark(ierr.ErrRefundExceedsOriginal)
		}
		reason := lo.CoalesceOrEmpty(req.Reason, defaultRefundReason)

		gateway, err := s.Gateways.Get(payment.GatewayProvider)
		if err != nil {
			return err
		}

		gatewayCtx, cancel := context.WithTimeout(ctx, s.Config.Gateway.Timeout)
		defer cancel()

		result, err := gateway.Refund(gatewayCtx, &integration.RefundRequest{
			TransactionID:  payment.GatewayTransactionID,
			Amount:         amount,
			Currency:       payment.Currency,
			Reason:         reason,
			IdempotencyKey: payment.ID + "_refund",
		})
		if err != nil {
			return ierr.WithError(err).
				WithHint(lo.CoalesceOrEmpty(ierr.GetHint(err), "Refund failed at the payment gateway")).
				WithReportableDetails(lo.Assign(map[string]interface{}{}, ierr.GetReportableDetails(err), map[string]interface{}{"payment_id": payment.ID})).
				Mark(ierr.ErrGateway)
		}
		if !result.Success {
			message := lo.CoalesceOrEmpty(result.ErrorMessage, "Refund declined")
			return ierr.NewError("refund declined").
				WithHint(message).
				WithReportableDetails(map[string]interface{}{
					"payment_id":      payment.ID,
					"gateway_code":    result.ErrorCode,
					"gateway_message": message,
				}).
				Mark(ierr.ErrGateway)
		}

		processedAt := result.ProcessedAt
		if processedAt.IsZero() {
			processedAt = s.Now().UTC()
		}
		payment.PaymentStatus = types.PaymentStatusRefunded
		payment.Refund = &rentpayment.Refund{
			Amount:        lo.Ternary(result.Amount.IsPositive(), result.Amount, amount),
			Date:          processedAt,
			Reason:        reason,
			TransactionID: result.RefundID,
		}
		payment.Touch(ctx)
		if err := s.RentPaymentRepo.Update(ctx, payment); err != nil {
			s.Logger.WithContext(ctx).Errorw("refund accepted by gateway but not recorded",
				"payment_id", payment.ID,
				"refund_id", result.RefundID,
				"error", err)
			return err
		}
		refunded = payment
		return nil
	})
	if err != nil {
		s.Logger.WithContext(ctx).Warnw("refund failed", "payment_id", paymentID, "error", err)
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("payment refunded",
		"payment_id", refunded.ID,
		"refund_id", refunded.Refund.TransactionID,
		"amount", refunded.Refund.Amount.String())

	s.publish(ctx, types.EventPaymentRefunded, refunded, map[string]interface{}{
		"refund_amount": refunded.Refund.Amount.String(),
		"refund_reason": refunded.Refund.Reason,
		"refund_id":     refunded.Refund.TransactionID,
	})
	return dto.NewPaymentResponse(refunded), nil
}

func (s *paymentSettlementService) GetPaymentStatus(ctx context.Context, paymentID string, tenantID string, reconcile bool) (*dto.PaymentResponse, error) {
	if paymentID == "" {
		return nil, ierr.NewError("payment id is required").
			WithHint("Please provide a valid payment ID").
			Mark(ierr.ErrValidation)
	}

	payment, err := s.RentPaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if tenantID != "" && payment.TenantID != tenantID {
		return nil, ierr.NewError("payment does not belong to tenant").
			WithHintf("Payment %s not found", paymentID).
			Mark(ierr.ErrNotFound)
	}

	if reconcile {
		reconciled, err := s.ReconcileStatus(ctx, paymentID)
		if err != nil {
			// the local view is still a valid answer
			s.Logger.WithContext(ctx).Warnw("reconciliation failed, returning stored status",
				"payment_id", paymentID,
				"error", err)
		} else {
			payment = reconciled
		}
	}
	return dto.NewPaymentResponse(payment), nil
}

func (s *paymentSettlementService) ReconcileStatus(ctx context.Context, paymentID string) (*rentpayment.RentPayment, error) {
	payment, err := s.RentPaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.GatewayTransactionID == "" {
		// a reservation the gateway never acknowledged
		stale := s.Now().Sub(payment.CreatedAt) > 2*s.Config.Gateway.Timeout
		if payment.PaymentStatus == types.PaymentStatusProcessing && stale {
			if _, err := applyPaymentStatus(ctx, s.ServiceParams, payment, types.PaymentStatusFailed, reasonSettlementInterrupted, "reconcile"); err != nil {
				return nil, err
			}
		}
		return payment, nil
	}

	gateway, err := s.Gateways.Get(payment.GatewayProvider)
	if err != nil {
		return nil, err
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.Config.Gateway.Timeout)
	defer cancel()

	status, err := gateway.GetTransactionStatus(gatewayCtx, payment.GatewayTransactionID)
	if err != nil {
		return nil, err
	}
	if status.Status == "" {
		s.Logger.WithContext(ctx).Infow("gateway status has no local equivalent",
			"payment_id", payment.ID,
			"gateway_status", status.GatewayStatus)
		return payment, nil
	}

	if _, err := applyPaymentStatus(ctx, s.ServiceParams, payment, status.Status, status.Reason, "reconcile"); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentSettlementService) ListPayments(ctx context.Context, filter *types.RentPaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewRentPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.RentPaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.RentPaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(payments, func(p *rentpayment.RentPayment, _ int) *dto.PaymentResponse {
		return dto.NewPaymentResponse(p)
	})
	return types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset()), nil
}

func (s *paymentSettlementService) publish(ctx context.Context, eventType types.DomainEventType, payment *rentpayment.RentPayment, extra map[string]interface{}) {
	publishPaymentEvent(ctx, s.ServiceParams, eventType, payment, extra)
}

// applyPaymentStatus moves a payment to next when the transition is allowed.
// Disallowed and no-op transitions are logged and reported as unchanged.
func applyPaymentStatus(ctx context.Context, params ServiceParams, payment *rentpayment.RentPayment, next types.PaymentStatus, reason string, source string) (bool, error) {
	log := params.Logger.WithContext(ctx)
	previous := payment.PaymentStatus

	if previous == next {
		return false, nil
	}
	if !payment.CanTransitionTo(next) {
		log.Warnw("ignoring disallowed payment status transition",
			"payment_id", payment.ID,
			"from", previous,
			"to", next,
			"source", source)
		return false, nil
	}

	payment.PaymentStatus = next
	switch next {
	case types.PaymentStatusFailed:
		payment.FailureReason = lo.CoalesceOrEmpty(reason, reasonPaymentFailed)
	case types.PaymentStatusCompleted, types.PaymentStatusCaptured:
		if payment.PaymentDate == nil {
			payment.PaymentDate = lo.ToPtr(params.Now().UTC())
		}
		payment.FailureReason = ""
	}
	payment.Touch(ctx)

	if err := params.RentPaymentRepo.Update(ctx, payment); err != nil {
		payment.PaymentStatus = previous
		return false, err
	}

	log.Infow("payment status updated",
		"payment_id", payment.ID,
		"from", previous,
		"to", next,
		"source", source)

	publishPaymentEvent(ctx, params, types.EventPaymentUpdated, payment, map[string]interface{}{
		"previous_status": previous,
		"source":          source,
	})
	return true, nil
}

// publishPaymentEvent records a notification intent. Publishing failures are
// logged and never fail the payment operation.
func publishPaymentEvent(ctx context.Context, params ServiceParams, eventType types.DomainEventType, payment *rentpayment.RentPayment, extra map[string]interface{}) {
	if params.EventPublisher == nil {
		return
	}
	event := publisher.NewEvent(ctx, eventType)
	event.TenantID = payment.TenantID
	event.LeaseID = payment.LeaseID
	event.PaymentID = payment.ID
	event.ScheduleID = payment.RecurringScheduleID
	event.Data = lo.Assign(map[string]interface{}{
		"status":         payment.PaymentStatus,
		"amount":         payment.Amount.String(),
		"total_amount":   payment.TotalAmount.String(),
		"currency":       payment.Currency,
		"payment_month":  payment.PaymentMonth,
		"payment_year":   payment.PaymentYear,
		"is_recurring":   payment.IsRecurring,
		"transaction_id": payment.GatewayTransactionID,
		"failure_reason": payment.FailureReason,
		"masked_payment": payment.MaskedPaymentInfo,
	}, extra)

	if err := params.EventPublisher.Publish(ctx, event); err != nil {
		params.Logger.WithContext(ctx).Errorw("failed to publish payment event",
			"payment_id", payment.ID,
			"event_type", eventType,
			"error", err)
	}
}
