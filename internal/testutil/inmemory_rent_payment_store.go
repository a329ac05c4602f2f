package testutil

import (
	"context"

	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// InMemoryRentPaymentStore implements rentpayment.Repository. The period
// guard runs under the store lock, matching the partial unique index of the
// Postgres store.
type InMemoryRentPaymentStore struct {
	*InMemoryStore[*rentpayment.RentPayment]
}

func NewInMemoryRentPaymentStore() *InMemoryRentPaymentStore {
	return &InMemoryRentPaymentStore{InMemoryStore: NewInMemoryStore[*rentpayment.RentPayment]()}
}

func copyRentPayment(p *rentpayment.RentPayment) *rentpayment.RentPayment {
	if p == nil {
		return nil
	}
	c := *p
	if p.PaymentDate != nil {
		c.PaymentDate = lo.ToPtr(*p.PaymentDate)
	}
	if p.RentDueDate != nil {
		c.RentDueDate = lo.ToPtr(*p.RentDueDate)
	}
	if p.Refund != nil {
		r := *p.Refund
		c.Refund = &r
	}
	if p.Metadata != nil {
		c.Metadata = lo.Assign(map[string]string{}, p.Metadata)
	}
	return &c
}

// checkWrite enforces the period guard and transaction id uniqueness against
// every row other than p itself. Callers hold the store lock.
func checkWrite(items map[string]*rentpayment.RentPayment, p *rentpayment.RentPayment) error {
	for id, other := range items {
		if id == p.ID {
			continue
		}
		if p.OccupiesPeriod() && other.OccupiesPeriod() && other.SamePeriod(p.LeaseID, p.PaymentMonth, p.PaymentYear) {
			return ierr.NewError("duplicate period payment").
				WithHintf("Payment for %s has already been made or is in progress", p.PeriodLabel()).
				WithReportableDetails(map[string]interface{}{
					"lease_id":      p.LeaseID,
					"payment_month": p.PaymentMonth,
					"payment_year":  p.PaymentYear,
				}).
				Mark(ierr.ErrDuplicatePeriodPayment)
		}
		if p.GatewayTransactionID != "" && other.GatewayTransactionID == p.GatewayTransactionID {
			return ierr.NewError("duplicate gateway transaction").
				WithHint("A payment with this gateway transaction already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return nil
}

func (s *InMemoryRentPaymentStore) Create(_ context.Context, p *rentpayment.RentPayment) error {
	if p == nil {
		return ierr.NewError("payment is nil").Mark(ierr.ErrValidation)
	}
	return s.Atomic(func(items map[string]*rentpayment.RentPayment) error {
		if _, exists := items[p.ID]; exists {
			return ierr.NewError("payment already exists").
				WithHintf("Payment %s already exists", p.ID).
				Mark(ierr.ErrAlreadyExists)
		}
		if err := checkWrite(items, p); err != nil {
			return err
		}
		items[p.ID] = copyRentPayment(p)
		return nil
	})
}

func (s *InMemoryRentPaymentStore) Update(_ context.Context, p *rentpayment.RentPayment) error {
	if p == nil {
		return ierr.NewError("payment is nil").Mark(ierr.ErrValidation)
	}
	return s.Atomic(func(items map[string]*rentpayment.RentPayment) error {
		if _, exists := items[p.ID]; !exists {
			return ierr.NewError("payment not found").
				WithHintf("Payment %s not found", p.ID).
				Mark(ierr.ErrNotFound)
		}
		if err := checkWrite(items, p); err != nil {
			return err
		}
		items[p.ID] = copyRentPayment(p)
		return nil
	})
}

func (s *InMemoryRentPaymentStore) Get(ctx context.Context, id string) (*rentpayment.RentPayment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payment %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyRentPayment(p), nil
}

func (s *InMemoryRentPaymentStore) findOne(match func(p *rentpayment.RentPayment) bool) *rentpayment.RentPayment {
	var found *rentpayment.RentPayment
	_ = s.Atomic(func(items map[string]*rentpayment.RentPayment) error {
		for _, p := range items {
			if match(p) {
				found = copyRentPayment(p)
				return nil
			}
		}
		return nil
	})
	return found
}

func (s *InMemoryRentPaymentStore) FindActiveForPeriod(_ context.Context, leaseID string, month, year int) (*rentpayment.RentPayment, error) {
	return s.findOne(func(p *rentpayment.RentPayment) bool {
		return p.SamePeriod(leaseID, month, year) && p.OccupiesPeriod()
	}), nil
}

func (s *InMemoryRentPaymentStore) GetByGatewayTransactionID(_ context.Context, transactionID string) (*rentpayment.RentPayment, error) {
	p := s.findOne(func(p *rentpayment.RentPayment) bool {
		return transactionID != "" && p.GatewayTransactionID == transactionID
	})
	if p == nil {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s not found", transactionID).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryRentPaymentStore) GetByRefundTransactionID(_ context.Context, refundTransactionID string) (*rentpayment.RentPayment, error) {
	p := s.findOne(func(p *rentpayment.RentPayment) bool {
		return refundTransactionID != "" && p.Refund != nil && p.Refund.TransactionID == refundTransactionID
	})
	if p == nil {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s not found", refundTransactionID).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func rentPaymentFilterFn(_ context.Context, p *rentpayment.RentPayment, filter interface{}) bool {
	f, ok := filter.(*types.RentPaymentFilter)
	if !ok || f == nil {
		return true
	}
	if f.TenantID != "" && p.TenantID != f.TenantID {
		return false
	}
	if len(f.LeaseIDs) > 0 && !lo.Contains(f.LeaseIDs, p.LeaseID) {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, p.PaymentStatus) {
		return false
	}
	if f.PaymentMonth != 0 && p.PaymentMonth != f.PaymentMonth {
		return false
	}
	if f.PaymentYear != 0 && p.PaymentYear != f.PaymentYear {
		return false
	}
	if f.RecurringScheduleID != "" && p.RecurringScheduleID != f.RecurringScheduleID {
		return false
	}
	return true
}

// newest first, id breaks ties like the SQL ordering
func rentPaymentSortFn(i, j *rentpayment.RentPayment) bool {
	if !i.CreatedAt.Equal(j.CreatedAt) {
		return i.CreatedAt.After(j.CreatedAt)
	}
	return i.ID > j.ID
}

func (s *InMemoryRentPaymentStore) List(ctx context.Context, filter *types.RentPaymentFilter) ([]*rentpayment.RentPayment, error) {
	if filter == nil {
		filter = types.NewRentPaymentFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, rentPaymentFilterFn, rentPaymentSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *rentpayment.RentPayment, _ int) *rentpayment.RentPayment { return copyRentPayment(p) }), nil
}

func (s *InMemoryRentPaymentStore) Count(ctx context.Context, filter *types.RentPaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewRentPaymentFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, rentPaymentFilterFn)
}
