package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/types"
	"gorm.io/gorm"
)

type recurringScheduleRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewRecurringScheduleRepository(client *postgres.Client, log *logger.Logger) recurringschedule.Repository {
	return &recurringScheduleRepository{client: client, log: log}
}

func (r *recurringScheduleRepository) Create(ctx context.Context, s *recurringschedule.RecurringSchedule) error {
	span := StartRepositorySpan(ctx, "recurring_schedule", "create", map[string]interface{}{
		"schedule_id": s.ID,
		"lease_id":    s.LeaseID,
	})
	defer FinishSpan(span)

	if err := r.client.Querier(ctx).Create(recurringScheduleRowOf(s)).Error; err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("The lease already has an active recurring payment").
				WithReportableDetails(map[string]interface{}{"lease_id": s.LeaseID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create recurring schedule").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return nil
}

func (r *recurringScheduleRepository) Update(ctx context.Context, s *recurringschedule.RecurringSchedule) error {
	span := StartRepositorySpan(ctx, "recurring_schedule", "update", map[string]interface{}{"schedule_id": s.ID})
	defer FinishSpan(span)

	row := recurringScheduleRowOf(s)
	err := r.updateColumns(ctx, s.ID, map[string]interface{}{
		"payment_method_id":       row.PaymentMethodID,
		"is_active":               row.IsActive,
		"payment_day":             row.PaymentDay,
		"end_date":                row.EndDate,
		"default_amount":          row.DefaultAmount,
		"next_payment_date":       row.NextPaymentDate,
		"last_payment_date":       row.LastPaymentDate,
		"total_payments_made":     row.TotalPaymentsMade,
		"failed_payment_attempts": row.FailedPaymentAttempts,
		"last_failure_reason":     row.LastFailureReason,
		"send_reminder_email":     row.SendReminderEmail,
		"reminder_days_before":    row.ReminderDaysBefore,
		"send_receipt_email":      row.SendReceiptEmail,
		"updated_at":              row.UpdatedAt,
		"updated_by":              row.UpdatedBy,
	})
	if err != nil {
		SetSpanError(span, err)
		return err
	}
	SetSpanSuccess(span)
	return nil
}

// UpdateRunOutcome writes only the columns a recurring run owns. Activation,
// payment method and the rest of the configuration are left as stored.
func (r *recurringScheduleRepository) UpdateRunOutcome(ctx context.Context, s *recurringschedule.RecurringSchedule) error {
	span := StartRepositorySpan(ctx, "recurring_schedule", "update_run_outcome", map[string]interface{}{"schedule_id": s.ID})
	defer FinishSpan(span)

	err := r.updateColumns(ctx, s.ID, map[string]interface{}{
		"next_payment_date":       dateOf(s.NextPaymentDate),
		"last_payment_date":       nullDateOf(s.LastPaymentDate),
		"total_payments_made":     s.TotalPaymentsMade,
		"failed_payment_attempts": s.FailedPaymentAttempts,
		"last_failure_reason":     s.LastFailureReason,
		"updated_at":              s.UpdatedAt,
		"updated_by":              s.UpdatedBy,
	})
	if err != nil {
		SetSpanError(span, err)
		return err
	}
	SetSpanSuccess(span)
	return nil
}

func (r *recurringScheduleRepository) updateColumns(ctx context.Context, id string, columns map[string]interface{}) error {
	res := r.client.Querier(ctx).Model(&recurringScheduleRow{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		if postgres.IsUniqueViolation(res.Error) {
			return ierr.WithError(res.Error).
				WithHint("The lease already has an active recurring payment").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(res.Error).
			WithHint("Failed to update recurring schedule").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("recurring schedule not found").
			WithHintf("Recurring schedule %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *recurringScheduleRepository) Get(ctx context.Context, id string) (*recurringschedule.RecurringSchedule, error) {
	span := StartRepositorySpan(ctx, "recurring_schedule", "get", map[string]interface{}{"schedule_id": id})
	defer FinishSpan(span)

	var row recurringScheduleRow
	if err := r.client.Querier(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Recurring schedule %s not found", id).
				WithReportableDetails(map[string]interface{}{"schedule_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get recurring schedule").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return row.toDomain(r.client.Location()), nil
}

func (r *recurringScheduleRepository) GetActiveByLease(ctx context.Context, leaseID string) (*recurringschedule.RecurringSchedule, error) {
	var row recurringScheduleRow
	err := r.client.Querier(ctx).
		Where("lease_id = ? AND is_active", leaseID).
		Order("created_at DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHint("No active recurring payment for this lease").
				WithReportableDetails(map[string]interface{}{"lease_id": leaseID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get recurring schedule").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(r.client.Location()), nil
}

func (r *recurringScheduleRepository) List(ctx context.Context, filter *types.RecurringScheduleFilter) ([]*recurringschedule.RecurringSchedule, error) {
	if filter == nil {
		filter = types.NewRecurringScheduleFilter()
	}
	q := r.client.Querier(ctx).
		Scopes(recurringScheduleFilter(filter), paginate(filter.QueryFilter)).
		Order("created_at DESC")
	return r.find(ctx, "list", q)
}

func (r *recurringScheduleRepository) Count(ctx context.Context, filter *types.RecurringScheduleFilter) (int, error) {
	if filter == nil {
		filter = types.NewRecurringScheduleFilter()
	}
	var count int64
	if err := r.client.Querier(ctx).Model(&recurringScheduleRow{}).
		Scopes(recurringScheduleFilter(filter)).
		Count(&count).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count recurring schedules").
			Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func recurringScheduleFilter(filter *types.RecurringScheduleFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.LeaseID != "" {
			q = q.Where("lease_id = ?", filter.LeaseID)
		}
		if filter.PaymentMethodID != "" {
			q = q.Where("payment_method_id = ?", filter.PaymentMethodID)
		}
		if filter.ActiveOnly {
			q = q.Where("is_active")
		}
		return q
	}
}

func (r *recurringScheduleRepository) DeactivateByLease(ctx context.Context, leaseID string) (int, error) {
	res := r.client.Querier(ctx).Model(&recurringScheduleRow{}).
		Where("lease_id = ? AND is_active", leaseID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
			"updated_by": types.GetUserID(ctx),
		})
	if res.Error != nil {
		return 0, ierr.WithError(res.Error).
			WithHint("Failed to deactivate recurring schedules").
			Mark(ierr.ErrDatabase)
	}
	return int(res.RowsAffected), nil
}

func (r *recurringScheduleRepository) ListDue(ctx context.Context, day time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	q := r.client.Querier(ctx).
		Table("recurring_schedules AS s").
		Select("s.*").
		Joins("JOIN leases l ON l.id = s.lease_id").
		Where("s.is_active")
	if types.IsLastDayOfMonth(day) {
		q = q.Where("s.payment_day >= ?", day.Day())
	} else {
		q = q.Where("s.payment_day = ?", day.Day())
	}
	q = q.Where("(s.last_payment_date IS NULL OR s.last_payment_date < ?)", dateOf(types.StartOfMonth(day))).
		Where("s.start_date <= ?", dateOf(day)).
		Where("(s.end_date IS NULL OR s.end_date >= ?)", dateOf(day)).
		Where("l.status = ?", types.LeaseStatusActive).
		Where("l.lease_start_date <= ? AND l.lease_end_date >= ?", dateOf(day), dateOf(day)).
		Order("s.id ASC")
	return r.find(ctx, "list_due", q)
}

func (r *recurringScheduleRepository) ListReminders(ctx context.Context, day time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	q := r.client.Querier(ctx).
		Where("is_active AND send_reminder_email AND reminder_days_before > 0").
		Where("next_payment_date - reminder_days_before = ?", dateOf(day)).
		Order("id ASC")
	return r.find(ctx, "list_reminders", q)
}

func (r *recurringScheduleRepository) CountActiveByPaymentMethod(ctx context.Context, paymentMethodID string) (int, error) {
	var n int64
	if err := r.client.Querier(ctx).Model(&recurringScheduleRow{}).
		Where("payment_method_id = ? AND is_active", paymentMethodID).
		Count(&n).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count recurring schedules").
			Mark(ierr.ErrDatabase)
	}
	return int(n), nil
}

func (r *recurringScheduleRepository) find(ctx context.Context, op string, q *gorm.DB) ([]*recurringschedule.RecurringSchedule, error) {
	span := StartRepositorySpan(ctx, "recurring_schedule", op, nil)
	defer FinishSpan(span)

	var rows []recurringScheduleRow
	if err := q.Find(&rows).Error; err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list recurring schedules").
			Mark(ierr.ErrDatabase)
	}

	loc := r.client.Location()
	out := make([]*recurringschedule.RecurringSchedule, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain(loc))
	}
	SetSpanSuccess(span)
	return out, nil
}
