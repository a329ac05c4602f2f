package dto

import (
	"time"

	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/rentpay/rentpay/internal/validator"
	"github.com/samber/lo"
)

type CreateRecurringScheduleRequest struct {
	TenantID           string     `json:"-"`
	LeaseID            string     `json:"lease_id" validate:"required"`
	PaymentMethodID    string     `json:"payment_method_id" validate:"required"`
	PaymentDay         int        `json:"payment_day" validate:"min=1,max=31"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	SendReminderEmail  *bool      `json:"send_reminder_email,omitempty"`
	ReminderDaysBefore *int       `json:"reminder_days_before,omitempty" validate:"omitempty,min=0,max=28"`
	SendReceiptEmail   *bool      `json:"send_receipt_email,omitempty"`
}

func (r *CreateRecurringScheduleRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.TenantID == "" {
		return ierr.NewError("tenant_id is required").
			WithHint("Auto-pay must be set up by an authenticated tenant").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Reminder options default to a reminder three days ahead and a receipt.
func (r *CreateRecurringScheduleRequest) ReminderOptions() (sendReminder bool, daysBefore int, sendReceipt bool) {
	return lo.FromPtrOr(r.SendReminderEmail, true),
		lo.FromPtrOr(r.ReminderDaysBefore, types.DefaultReminderDaysBefore),
		lo.FromPtrOr(r.SendReceiptEmail, true)
}

// UpdateRecurringScheduleRequest is a partial update; nil fields are kept.
type UpdateRecurringScheduleRequest struct {
	PaymentMethodID    *string    `json:"payment_method_id,omitempty" validate:"omitempty,min=1"`
	PaymentDay         *int       `json:"payment_day,omitempty" validate:"omitempty,min=1,max=31"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	SendReminderEmail  *bool      `json:"send_reminder_email,omitempty"`
	ReminderDaysBefore *int       `json:"reminder_days_before,omitempty" validate:"omitempty,min=0,max=28"`
	SendReceiptEmail   *bool      `json:"send_receipt_email,omitempty"`
}

func (r *UpdateRecurringScheduleRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RecurringScheduleResponse struct {
	*recurringschedule.RecurringSchedule
	ReminderDate *time.Time `json:"reminder_date,omitempty"`
}

func NewRecurringScheduleResponse(s *recurringschedule.RecurringSchedule) *RecurringScheduleResponse {
	resp := &RecurringScheduleResponse{RecurringSchedule: s}
	if s.SendReminderEmail && s.ReminderDaysBefore > 0 {
		resp.ReminderDate = lo.ToPtr(s.ReminderDate())
	}
	return resp
}

type ListRecurringSchedulesResponse = types.ListResponse[*RecurringScheduleResponse]
