package testutil

import (
	"context"

	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentMethodStore implements paymentmethod.Repository
type InMemoryPaymentMethodStore struct {
	*InMemoryStore[*paymentmethod.PaymentMethod]
}

func NewInMemoryPaymentMethodStore() *InMemoryPaymentMethodStore {
	return &InMemoryPaymentMethodStore{InMemoryStore: NewInMemoryStore[*paymentmethod.PaymentMethod]()}
}

func copyPaymentMethod(pm *paymentmethod.PaymentMethod) *paymentmethod.PaymentMethod {
	if pm == nil {
		return nil
	}
	c := *pm
	return &c
}

func (s *InMemoryPaymentMethodStore) Create(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	if pm == nil {
		return ierr.NewError("payment method is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, pm.ID, copyPaymentMethod(pm))
}

func (s *InMemoryPaymentMethodStore) Get(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	pm, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payment method %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyPaymentMethod(pm), nil
}

func (s *InMemoryPaymentMethodStore) Update(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	if pm == nil {
		return ierr.NewError("payment method is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, pm.ID, copyPaymentMethod(pm))
}

func paymentMethodFilterFn(_ context.Context, pm *paymentmethod.PaymentMethod, filter interface{}) bool {
	f, ok := filter.(*types.PaymentMethodFilter)
	if !ok || f == nil {
		return pm.Status != types.PaymentMethodStatusDeleted
	}
	if f.TenantID != "" && pm.TenantID != f.TenantID {
		return false
	}
	if len(f.Statuses) == 0 {
		return pm.Status != types.PaymentMethodStatusDeleted
	}
	return lo.Contains(f.Statuses, pm.Status)
}

// default first, then newest
func paymentMethodSortFn(i, j *paymentmethod.PaymentMethod) bool {
	if i.IsDefault != j.IsDefault {
		return i.IsDefault
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryPaymentMethodStore) List(ctx context.Context, filter *types.PaymentMethodFilter) ([]*paymentmethod.PaymentMethod, error) {
	if filter == nil {
		filter = types.NewPaymentMethodFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, paymentMethodFilterFn, paymentMethodSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(pm *paymentmethod.PaymentMethod, _ int) *paymentmethod.PaymentMethod {
		return copyPaymentMethod(pm)
	}), nil
}

func (s *InMemoryPaymentMethodStore) ClearDefault(_ context.Context, tenantID string, keepID string) error {
	return s.Atomic(func(items map[string]*paymentmethod.PaymentMethod) error {
		for id, pm := range items {
			if pm.TenantID == tenantID && id != keepID && pm.IsDefault {
				c := copyPaymentMethod(pm)
				c.IsDefault = false
				items[id] = c
			}
		}
		return nil
	})
}
