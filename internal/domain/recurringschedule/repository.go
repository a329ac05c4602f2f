package recurringschedule

import (
	"context"
	"time"

	"github.com/rentpay/rentpay/internal/types"
)

type Repository interface {
	Create(ctx context.Context, s *RecurringSchedule) error
	Get(ctx context.Context, id string) (*RecurringSchedule, error)
	Update(ctx context.Context, s *RecurringSchedule) error
	List(ctx context.Context, filter *types.RecurringScheduleFilter) ([]*RecurringSchedule, error)
	// Count returns how many schedules match filter, ignoring its limit and offset.
	Count(ctx context.Context, filter *types.RecurringScheduleFilter) (int, error)

	// UpdateRunOutcome persists only what a recurring run changes: next and last
	// payment dates, the success and failure counters, the last failure reason
	// and the update stamp. is_active and payment_method_id are never written.
	UpdateRunOutcome(ctx context.Context, s *RecurringSchedule) error

	// GetActiveByLease returns the lease's active schedule, or a not found error.
	GetActiveByLease(ctx context.Context, leaseID string) (*RecurringSchedule, error)
	// DeactivateByLease sets is_active=false on every active schedule of the lease
	// and returns how many were changed.
	DeactivateByLease(ctx context.Context, leaseID string) (int, error)
	// ListDue returns schedules selectable on day (see IsSelectableOn) whose lease
	// is active, ordered by ascending id.
	ListDue(ctx context.Context, day time.Time) ([]*RecurringSchedule, error)
	// ListReminders returns active schedules with reminders enabled whose
	// reminder date is day.
	ListReminders(ctx context.Context, day time.Time) ([]*RecurringSchedule, error)
	// CountActiveByPaymentMethod counts active schedules charging the method.
	CountActiveByPaymentMethod(ctx context.Context, paymentMethodID string) (int, error)
}
