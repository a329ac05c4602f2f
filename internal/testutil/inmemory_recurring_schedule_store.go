package testutil

import (
	"context"
	"time"

	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// InMemoryRecurringScheduleStore implements recurringschedule.Repository.
// ListDue joins against the lease store the way the SQL query joins leases.
type InMemoryRecurringScheduleStore struct {
	*InMemoryStore[*recurringschedule.RecurringSchedule]
	leases lease.Repository
}

func NewInMemoryRecurringScheduleStore(leases lease.Repository) *InMemoryRecurringScheduleStore {
	return &InMemoryRecurringScheduleStore{
		InMemoryStore: NewInMemoryStore[*recurringschedule.RecurringSchedule](),
		leases:        leases,
	}
}

func copyRecurringSchedule(s *recurringschedule.RecurringSchedule) *recurringschedule.RecurringSchedule {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndDate != nil {
		c.EndDate = lo.ToPtr(*s.EndDate)
	}
	if s.LastPaymentDate != nil {
		c.LastPaymentDate = lo.ToPtr(*s.LastPaymentDate)
	}
	return &c
}

func activeForLease(items map[string]*recurringschedule.RecurringSchedule, s *recurringschedule.RecurringSchedule) bool {
	if !s.IsActive {
		return false
	}
	for id, other := range items {
		if id != s.ID && other.IsActive && other.LeaseID == s.LeaseID {
			return true
		}
	}
	return false
}

func (s *InMemoryRecurringScheduleStore) Create(_ context.Context, sch *recurringschedule.RecurringSchedule) error {
	if sch == nil {
		return ierr.NewError("schedule is nil").Mark(ierr.ErrValidation)
	}
	return s.Atomic(func(items map[string]*recurringschedule.RecurringSchedule) error {
		if _, exists := items[sch.ID]; exists {
			return ierr.NewError("schedule already exists").Mark(ierr.ErrAlreadyExists)
		}
		if activeForLease(items, sch) {
			return ierr.NewError("active schedule exists").
				WithHint("The lease already has an active recurring payment").
				WithReportableDetails(map[string]interface{}{"lease_id": sch.LeaseID}).
				Mark(ierr.ErrAlreadyExists)
		}
		items[sch.ID] = copyRecurringSchedule(sch)
		return nil
	})
}

func (s *InMemoryRecurringScheduleStore) Update(_ context.Context, sch *recurringschedule.RecurringSchedule) error {
	if sch == nil {
		return ierr.NewError("schedule is nil").Mark(ierr.ErrValidation)
	}
	return s.Atomic(func(items map[string]*recurringschedule.RecurringSchedule) error {
		if _, exists := items[sch.ID]; !exists {
			return ierr.NewError("schedule not found").
				WithHintf("Recurring schedule %s not found", sch.ID).
				Mark(ierr.ErrNotFound)
		}
		if activeForLease(items, sch) {
			return ierr.NewError("active schedule exists").
				WithHint("The lease already has an active recurring payment").
				Mark(ierr.ErrAlreadyExists)
		}
		items[sch.ID] = copyRecurringSchedule(sch)
		return nil
	})
}

func (s *InMemoryRecurringScheduleStore) UpdateRunOutcome(_ context.Context, sch *recurringschedule.RecurringSchedule) error {
	if sch == nil {
		return ierr.NewError("schedule is nil").Mark(ierr.ErrValidation)
	}
	return s.Atomic(func(items map[string]*recurringschedule.RecurringSchedule) error {
		stored, exists := items[sch.ID]
		if !exists {
			return ierr.NewError("schedule not found").
				WithHintf("Recurring schedule %s not found", sch.ID).
				Mark(ierr.ErrNotFound)
		}
		c := copyRecurringSchedule(stored)
		c.NextPaymentDate = sch.NextPaymentDate
		c.LastPaymentDate = nil
		if sch.LastPaymentDate != nil {
			c.LastPaymentDate = lo.ToPtr(*sch.LastPaymentDate)
		}
		c.TotalPaymentsMade = sch.TotalPaymentsMade
		c.FailedPaymentAttempts = sch.FailedPaymentAttempts
		c.LastFailureReason = sch.LastFailureReason
		c.UpdatedAt = sch.UpdatedAt
		c.UpdatedBy = sch.UpdatedBy
		items[sch.ID] = c
		return nil
	})
}

func (s *InMemoryRecurringScheduleStore) Get(ctx context.Context, id string) (*recurringschedule.RecurringSchedule, error) {
	sch, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Recurring schedule %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyRecurringSchedule(sch), nil
}

func recurringScheduleFilterFn(_ context.Context, sch *recurringschedule.RecurringSchedule, filter interface{}) bool {
	f, ok := filter.(*types.RecurringScheduleFilter)
	if !ok || f == nil {
		return true
	}
	if f.TenantID != "" && sch.TenantID != f.TenantID {
		return false
	}
	if f.LeaseID != "" && sch.LeaseID != f.LeaseID {
		return false
	}
	if f.PaymentMethodID != "" && sch.PaymentMethodID != f.PaymentMethodID {
		return false
	}
	return !f.ActiveOnly || sch.IsActive
}

func newestScheduleFirst(i, j *recurringschedule.RecurringSchedule) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func byScheduleID(i, j *recurringschedule.RecurringSchedule) bool {
	return i.ID < j.ID
}

func (s *InMemoryRecurringScheduleStore) List(ctx context.Context, filter *types.RecurringScheduleFilter) ([]*recurringschedule.RecurringSchedule, error) {
	if filter == nil {
		filter = types.NewRecurringScheduleFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, recurringScheduleFilterFn, newestScheduleFirst)
	if err != nil {
		return nil, err
	}
	return s.copyAll(items), nil
}

func (s *InMemoryRecurringScheduleStore) Count(ctx context.Context, filter *types.RecurringScheduleFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, recurringScheduleFilterFn)
}

func (s *InMemoryRecurringScheduleStore) GetActiveByLease(ctx context.Context, leaseID string) (*recurringschedule.RecurringSchedule, error) {
	items, err := s.List(ctx, &types.RecurringScheduleFilter{LeaseID: leaseID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("no active schedule").
			WithHint("No active recurring payment for this lease").
			WithReportableDetails(map[string]interface{}{"lease_id": leaseID}).
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryRecurringScheduleStore) DeactivateByLease(ctx context.Context, leaseID string) (int, error) {
	n := 0
	err := s.Atomic(func(items map[string]*recurringschedule.RecurringSchedule) error {
		for id, sch := range items {
			if sch.LeaseID == leaseID && sch.IsActive {
				c := copyRecurringSchedule(sch)
				c.IsActive = false
				c.Touch(ctx)
				items[id] = c
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *InMemoryRecurringScheduleStore) ListDue(ctx context.Context, day time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	candidates, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sch *recurringschedule.RecurringSchedule, _ interface{}) bool {
		return sch.IsSelectableOn(day)
	}, byScheduleID)
	if err != nil {
		return nil, err
	}

	due := make([]*recurringschedule.RecurringSchedule, 0, len(candidates))
	for _, sch := range candidates {
		l, err := s.leases.Get(ctx, sch.LeaseID)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if l.IsActive(day) {
			due = append(due, copyRecurringSchedule(sch))
		}
	}
	return due, nil
}

func (s *InMemoryRecurringScheduleStore) ListReminders(ctx context.Context, day time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sch *recurringschedule.RecurringSchedule, _ interface{}) bool {
		return sch.IsActive && sch.SendReminderEmail && sch.ReminderDaysBefore > 0 &&
			types.SameDate(sch.ReminderDate(), day)
	}, byScheduleID)
	if err != nil {
		return nil, err
	}
	return s.copyAll(items), nil
}

func (s *InMemoryRecurringScheduleStore) CountActiveByPaymentMethod(ctx context.Context, paymentMethodID string) (int, error) {
	return s.InMemoryStore.Count(ctx, nil, func(_ context.Context, sch *recurringschedule.RecurringSchedule, _ interface{}) bool {
		return sch.IsActive && sch.PaymentMethodID == paymentMethodID
	})
}

func (s *InMemoryRecurringScheduleStore) copyAll(items []*recurringschedule.RecurringSchedule) []*recurringschedule.RecurringSchedule {
	return lo.Map(items, func(sch *recurringschedule.RecurringSchedule, _ int) *recurringschedule.RecurringSchedule {
		return copyRecurringSchedule(sch)
	})
}
