package recurringschedule

import (
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
)

// RecurringSchedule is a standing instruction to auto-pay one lease monthly.
type RecurringSchedule struct {
	ID                    string                      `db:"id" json:"id"`
	LeaseID               string                      `db:"lease_id" json:"lease_id"`
	TenantID              string                      `db:"tenant_id" json:"tenant_id"`
	PaymentMethodID       string                      `db:"payment_method_id" json:"payment_method_id"`
	IsActive              bool                        `db:"is_active" json:"is_active"`
	PaymentDay            int                         `db:"payment_day" json:"payment_day"`
	ScheduleType          types.RecurringScheduleType `db:"schedule_type" json:"schedule_type"`
	StartDate             time.Time                   `db:"start_date" json:"start_date"`
	EndDate               *time.Time                  `db:"end_date" json:"end_date,omitempty"`
	DefaultAmount         decimal.Decimal             `db:"default_amount" json:"default_amount" swaggertype:"string"`
	NextPaymentDate       time.Time                   `db:"next_payment_date" json:"next_payment_date"`
	LastPaymentDate       *time.Time                  `db:"last_payment_date" json:"last_payment_date,omitempty"`
	TotalPaymentsMade     int                         `db:"total_payments_made" json:"total_payments_made"`
	FailedPaymentAttempts int                         `db:"failed_payment_attempts" json:"failed_payment_attempts"`
	LastFailureReason     string                      `db:"last_failure_reason" json:"last_failure_reason,omitempty"`
	SendReminderEmail     bool                        `db:"send_reminder_email" json:"send_reminder_email"`
	ReminderDaysBefore    int                         `db:"reminder_days_before" json:"reminder_days_before"`
	SendReceiptEmail      bool                        `db:"send_receipt_email" json:"send_receipt_email"`
	types.BaseModel
}

// Advance returns the next payment date one calendar month after from, on
// paymentDay or on the last day of that month when it is shorter.
// Jan 31 with day 31 advances to Feb 28 (Feb 29 in leap years), never Mar 3.
func Advance(paymentDay int, from time.Time) time.Time {
	year, month := types.AddCalendarMonth(from.Year(), from.Month())
	return types.ClampedDate(year, month, paymentDay, from.Location())
}

// Advance moves the schedule's next payment date one month past from.
func (s *RecurringSchedule) Advance(from time.Time) time.Time {
	s.NextPaymentDate = Advance(s.PaymentDay, from)
	return s.NextPaymentDate
}

// ValidatePaymentDay checks the 1-31 range.
func ValidatePaymentDay(day int) error {
	if day < 1 || day > 31 {
		return ierr.NewError("invalid payment day").
			WithHint("Payment day must be between 1 and 31").
			WithReportableDetails(map[string]interface{}{"payment_day": day}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateReminderDays checks the reminder lead time.
func ValidateReminderDays(days int) error {
	if days < 0 || days > types.MaxReminderDaysBefore {
		return ierr.NewError("invalid reminder days").
			WithHintf("Reminder days before must be between 0 and %d", types.MaxReminderDaysBefore).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s *RecurringSchedule) Validate() error {
	if s.LeaseID == "" || s.TenantID == "" || s.PaymentMethodID == "" {
		return ierr.NewError("lease, tenant and payment method are required").
			WithHint("Schedule must reference a lease, a tenant and a payment method").
			Mark(ierr.ErrValidation)
	}
	if err := ValidatePaymentDay(s.PaymentDay); err != nil {
		return err
	}
	if err := ValidateReminderDays(s.ReminderDaysBefore); err != nil {
		return err
	}
	if err := s.ScheduleType.Validate(); err != nil {
		return err
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return ierr.NewError("end date before start date").
			WithHint("Schedule end date must not be before its start date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsDueOn reports whether the schedule's payment day falls on day. On the last
// day of a month, schedules whose payment day does not exist in that month are
// due as well.
func (s *RecurringSchedule) IsDueOn(day time.Time) bool {
	if s.PaymentDay == day.Day() {
		return true
	}
	return types.IsLastDayOfMonth(day) && s.PaymentDay > day.Day()
}

// PaidForMonthOf reports whether an auto-payment was already recorded in day's month.
func (s *RecurringSchedule) PaidForMonthOf(day time.Time) bool {
	if s.LastPaymentDate == nil {
		return false
	}
	return !s.LastPaymentDate.Before(types.StartOfMonth(day))
}

// InWindow reports whether day lies between start_date and end_date.
func (s *RecurringSchedule) InWindow(day time.Time) bool {
	if day.Before(types.DateOf(s.StartDate, day.Location())) {
		return false
	}
	return s.EndDate == nil || !day.After(types.DateOf(*s.EndDate, day.Location()))
}

// IsSelectableOn applies the daily selection rule to a single schedule.
func (s *RecurringSchedule) IsSelectableOn(day time.Time) bool {
	return s.IsActive && s.IsDueOn(day) && !s.PaidForMonthOf(day) && s.InWindow(day)
}

// ReminderDate is the day a reminder for the next payment should go out.
func (s *RecurringSchedule) ReminderDate() time.Time {
	return s.NextPaymentDate.AddDate(0, 0, -s.ReminderDaysBefore)
}

// RecordSuccess applies a successful auto-payment on day.
func (s *RecurringSchedule) RecordSuccess(day time.Time) {
	s.Advance(day)
	paid := day
	s.LastPaymentDate = &paid
	s.TotalPaymentsMade++
	s.FailedPaymentAttempts = 0
	s.LastFailureReason = ""
}

// RecordFailure applies a failed auto-payment on day. The schedule still moves
// to the next month; last_payment_date is left alone.
func (s *RecurringSchedule) RecordFailure(day time.Time, reason string) {
	s.Advance(day)
	s.FailedPaymentAttempts++
	s.LastFailureReason = reason
}

// RecordSkip aligns the next date after a period that was already paid by
// other means. Counters are untouched.
func (s *RecurringSchedule) RecordSkip(day time.Time) {
	s.Advance(day)
}
