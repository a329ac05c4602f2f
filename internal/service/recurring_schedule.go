package service

import (
	"context"

	"github.com/rentpay/rentpay/internal/api/dto"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// RecurringScheduleService owns the auto-pay schedule lifecycle.
type RecurringScheduleService interface {
	CreateSchedule(ctx context.Context, req *dto.CreateRecurringScheduleRequest) (*dto.RecurringScheduleResponse, error)
	// UpdateSchedule applies a partial update. A new payment day takes effect
	// from the next advance; next_payment_date is not recomputed.
	UpdateSchedule(ctx context.Context, id string, tenantID string, req *dto.UpdateRecurringScheduleRequest) (*dto.RecurringScheduleResponse, error)
	// CancelSchedule deactivates the schedule. Cancelling twice is not an error.
	CancelSchedule(ctx context.Context, id string, tenantID string) (*dto.RecurringScheduleResponse, error)
	GetSchedule(ctx context.Context, id string, tenantID string) (*dto.RecurringScheduleResponse, error)
	GetActiveScheduleForLease(ctx context.Context, leaseID string, tenantID string) (*dto.RecurringScheduleResponse, error)
	ListSchedules(ctx context.Context, filter *types.RecurringScheduleFilter) (*dto.ListRecurringSchedulesResponse, error)
}

type recurringScheduleService struct {
	ServiceParams
}

func NewRecurringScheduleService(params ServiceParams) RecurringScheduleService {
	return &recurringScheduleService{ServiceParams: params}
}

func (s *recurringScheduleService) CreateSchedule(ctx context.Context, req *dto.CreateRecurringScheduleRequest) (*dto.RecurringScheduleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	l, err := s.LeaseRepo.Get(ctx, req.LeaseID)
	if err != nil {
		return nil, err
	}
	if l.TenantID != req.TenantID {
		return nil, ierr.NewError("lease does not belong to tenant").
			WithHintf("Lease %s not found", req.LeaseID).
			Mark(ierr.ErrNotFound)
	}
	if !l.IsActive(s.Now()) {
		return nil, ierr.NewError("lease is not active").
			WithHint("Auto-pay can only be set up for an active lease").
			WithReportableDetails(map[string]interface{}{
				"lease_id": l.ID,
				"status":   l.Status,
			}).
			Mark(ierr.ErrValidation)
	}

	if _, err := s.usableMethod(ctx, req.PaymentMethodID, req.TenantID); err != nil {
		return nil, err
	}

	today := s.Today()
	sendReminder, reminderDays, sendReceipt := req.ReminderOptions()
	schedule := &recurringschedule.RecurringSchedule{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_SCHEDULE),
		LeaseID:            l.ID,
		TenantID:           req.TenantID,
		PaymentMethodID:    req.PaymentMethodID,
		IsActive:           true,
		PaymentDay:         req.PaymentDay,
		ScheduleType:       types.RecurringScheduleTypeMonthly,
		StartDate:          today,
		EndDate:            req.EndDate,
		DefaultAmount:      l.MonthlyRent,
		NextPaymentDate:    recurringschedule.Advance(req.PaymentDay, today),
		SendReminderEmail:  sendReminder,
		ReminderDaysBefore: reminderDays,
		SendReceiptEmail:   sendReceipt,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	var replaced int
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(types.LockScopeRecurringScheduleLease, map[string]interface{}{"lease_id": l.ID}),
		}); err != nil {
			return err
		}

		replaced, err = s.RecurringScheduleRepo.DeactivateByLease(ctx, l.ID)
		if err != nil {
			return err
		}
		return s.RecurringScheduleRepo.Create(ctx, schedule)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created recurring schedule",
		"schedule_id", schedule.ID,
		"lease_id", schedule.LeaseID,
		"payment_day", schedule.PaymentDay,
		"next_payment_date", schedule.NextPaymentDate,
		"replaced", replaced)

	s.publish(ctx, types.EventAutoPayCreated, schedule, map[string]interface{}{"replaced": replaced})
	return dto.NewRecurringScheduleResponse(schedule), nil
}

func (s *recurringScheduleService) UpdateSchedule(ctx context.Context, id string, tenantID string, req *dto.UpdateRecurringScheduleRequest) (*dto.RecurringScheduleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var schedule *recurringschedule.RecurringSchedule
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.LockSchedule(ctx, id); err != nil {
			return err
		}
		var err error
		schedule, err = s.owned(ctx, id, tenantID)
		if err != nil {
			return err
		}
		if !schedule.IsActive {
			return ierr.NewError("schedule is not active").
				WithHint("Cancelled schedules cannot be updated").
				WithReportableDetails(map[string]interface{}{"schedule_id": id}).
				Mark(ierr.ErrInvalidOperation)
		}

		if req.PaymentMethodID != nil && *req.PaymentMethodID != schedule.PaymentMethodID {
			if _, err := s.usableMethod(ctx, *req.PaymentMethodID, schedule.TenantID); err != nil {
				return err
			}
			schedule.PaymentMethodID = *req.PaymentMethodID
		}
		if req.PaymentDay != nil {
			schedule.PaymentDay = *req.PaymentDay
		}
		if req.EndDate != nil {
			schedule.EndDate = req.EndDate
		}
		schedule.SendReminderEmail = lo.FromPtrOr(req.SendReminderEmail, schedule.SendReminderEmail)
		schedule.ReminderDaysBefore = lo.FromPtrOr(req.ReminderDaysBefore, schedule.ReminderDaysBefore)
		schedule.SendReceiptEmail = lo.FromPtrOr(req.SendReceiptEmail, schedule.SendReceiptEmail)

		if err := schedule.Validate(); err != nil {
			return err
		}
		schedule.Touch(ctx)
		return s.RecurringScheduleRepo.Update(ctx, schedule)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("updated recurring schedule",
		"schedule_id", schedule.ID,
		"payment_method_id", schedule.PaymentMethodID,
		"payment_day", schedule.PaymentDay)
	return dto.NewRecurringScheduleResponse(schedule), nil
}

func (s *recurringScheduleService) CancelSchedule(ctx context.Context, id string, tenantID string) (*dto.RecurringScheduleResponse, error) {
	var (
		schedule  *recurringschedule.RecurringSchedule
		cancelled bool
	)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.LockSchedule(ctx, id); err != nil {
			return err
		}
		var err error
		schedule, err = s.owned(ctx, id, tenantID)
		if err != nil || !schedule.IsActive {
			return err
		}
		schedule.IsActive = false
		schedule.Touch(ctx)
		cancelled = true
		return s.RecurringScheduleRepo.Update(ctx, schedule)
	})
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return dto.NewRecurringScheduleResponse(schedule), nil
	}

	s.Logger.WithContext(ctx).Infow("cancelled recurring schedule",
		"schedule_id", schedule.ID,
		"lease_id", schedule.LeaseID)
	s.publish(ctx, types.EventAutoPayCancelled, schedule, nil)
	return dto.NewRecurringScheduleResponse(schedule), nil
}

func (s *recurringScheduleService) GetSchedule(ctx context.Context, id string, tenantID string) (*dto.RecurringScheduleResponse, error) {
	schedule, err := s.owned(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	return dto.NewRecurringScheduleResponse(schedule), nil
}

func (s *recurringScheduleService) GetActiveScheduleForLease(ctx context.Context, leaseID string, tenantID string) (*dto.RecurringScheduleResponse, error) {
	schedule, err := s.RecurringScheduleRepo.GetActiveByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if tenantID != "" && schedule.TenantID != tenantID {
		return nil, ierr.NewError("schedule does not belong to tenant").
			WithHintf("No active auto-pay for lease %s", leaseID).
			Mark(ierr.ErrNotFound)
	}
	return dto.NewRecurringScheduleResponse(schedule), nil
}

func (s *recurringScheduleService) ListSchedules(ctx context.Context, filter *types.RecurringScheduleFilter) (*dto.ListRecurringSchedulesResponse, error) {
	if filter == nil {
		filter = types.NewRecurringScheduleFilter()
	}
	if err := filter.QueryFilter.Validate(); err != nil {
		return nil, err
	}

	schedules, err := s.RecurringScheduleRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.RecurringScheduleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(schedules, func(rs *recurringschedule.RecurringSchedule, _ int) *dto.RecurringScheduleResponse {
		return dto.NewRecurringScheduleResponse(rs)
	})
	return types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset()), nil
}

// owned loads a schedule; foreign schedules are reported as not found. An empty
// tenantID skips the check for operators.
func (s *recurringScheduleService) owned(ctx context.Context, id string, tenantID string) (*recurringschedule.RecurringSchedule, error) {
	if id == "" {
		return nil, ierr.NewError("schedule id is required").
			WithHint("Please provide a valid schedule ID").
			Mark(ierr.ErrValidation)
	}
	schedule, err := s.RecurringScheduleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenantID != "" && schedule.TenantID != tenantID {
		return nil, ierr.NewError("schedule does not belong to tenant").
			WithHintf("Recurring schedule %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return schedule, nil
}

func (s *recurringScheduleService) usableMethod(ctx context.Context, id string, tenantID string) (*paymentmethod.PaymentMethod, error) {
	pm, err := s.PaymentMethodRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pm.TenantID != tenantID || pm.Status == types.PaymentMethodStatusDeleted {
		return nil, ierr.NewError("payment method does not belong to tenant").
			WithHintf("Payment method %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	if !pm.IsUsable(s.Now()) {
		return nil, ierr.NewError("payment method is not usable").
			WithHint("Payment method is expired or inactive").
			WithReportableDetails(map[string]interface{}{
				"payment_method_id": pm.ID,
				"status":            pm.Status,
			}).
			Mark(ierr.ErrValidation)
	}
	return pm, nil
}

func (s *recurringScheduleService) publish(ctx context.Context, eventType types.DomainEventType, schedule *recurringschedule.RecurringSchedule, extra map[string]interface{}) {
	publishScheduleEvent(ctx, s.ServiceParams, eventType, schedule, extra)
}

func publishScheduleEvent(ctx context.Context, params ServiceParams, eventType types.DomainEventType, schedule *recurringschedule.RecurringSchedule, extra map[string]interface{}) {
	if params.EventPublisher == nil {
		return
	}
	event := publisher.NewEvent(ctx, eventType)
	event.TenantID = schedule.TenantID
	event.LeaseID = schedule.LeaseID
	event.ScheduleID = schedule.ID
	event.Data = lo.Assign(map[string]interface{}{
		"payment_method_id":       schedule.PaymentMethodID,
		"payment_day":             schedule.PaymentDay,
		"next_payment_date":       schedule.NextPaymentDate.Format("2006-01-02"),
		"default_amount":          schedule.DefaultAmount.String(),
		"send_receipt_email":      schedule.SendReceiptEmail,
		"failed_payment_attempts": schedule.FailedPaymentAttempts,
	}, extra)

	if err := params.EventPublisher.Publish(ctx, event); err != nil {
		params.Logger.WithContext(ctx).Errorw("failed to publish schedule event",
			"schedule_id", schedule.ID,
			"event_type", eventType,
			"error", err)
	}
}
