package service

import (
	"context"
	"strings"

	"github.com/rentpay/rentpay/internal/api/dto"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

type PaymentMethodService interface {
	CreatePaymentMethod(ctx context.Context, req *dto.CreatePaymentMethodRequest) (*dto.PaymentMethodResponse, error)
	GetPaymentMethod(ctx context.Context, id string, tenantID string) (*dto.PaymentMethodResponse, error)
	// ListPaymentMethods returns the tenant's non-deleted methods, default first.
	ListPaymentMethods(ctx context.Context, tenantID string) (*dto.ListPaymentMethodsResponse, error)
	UpdatePaymentMethod(ctx context.Context, id string, tenantID string, req *dto.UpdatePaymentMethodRequest) (*dto.PaymentMethodResponse, error)
	SetDefault(ctx context.Context, id string, tenantID string) (*dto.PaymentMethodResponse, error)
	// DeletePaymentMethod soft deletes the method. It is refused while an active
	// schedule charges it.
	DeletePaymentMethod(ctx context.Context, id string, tenantID string) error
	// MarkExpiredCards moves active cards past their expiry month to expired
	// and returns how many changed.
	MarkExpiredCards(ctx context.Context) (int, error)
}

type paymentMethodService struct {
	ServiceParams
}

func NewPaymentMethodService(params ServiceParams) PaymentMethodService {
	return &paymentMethodService{ServiceParams: params}
}

func (s *paymentMethodService) CreatePaymentMethod(ctx context.Context, req *dto.CreatePaymentMethodRequest) (*dto.PaymentMethodResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pm := req.ToPaymentMethod(ctx, s.Config.Gateway.Provider)
	pm.CardBrand = strings.TrimSpace(pm.CardBrand)
	if err := pm.Validate(); err != nil {
		return nil, err
	}
	if pm.IsCardExpired(s.Now()) {
		return nil, ierr.NewError("card is expired").
			WithHint("The card has expired").
			Mark(ierr.ErrValidation)
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockDefault(ctx, pm.TenantID); err != nil {
			return err
		}

		existing, err := s.PaymentMethodRepo.List(ctx, &types.PaymentMethodFilter{
			QueryFilter: types.NewNoLimitQueryFilter(),
			TenantID:    pm.TenantID,
			Statuses:    []types.PaymentMethodStatus{types.PaymentMethodStatusActive},
		})
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			pm.IsDefault = true
		}

		if err := s.PaymentMethodRepo.Create(ctx, pm); err != nil {
			return err
		}
		if pm.IsDefault {
			return s.PaymentMethodRepo.ClearDefault(ctx, pm.TenantID, pm.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created payment method",
		"payment_method_id", pm.ID,
		"tenant_id", pm.TenantID,
		"payment_type", pm.PaymentType,
		"is_default", pm.IsDefault)
	return dto.NewPaymentMethodResponse(pm), nil
}

func (s *paymentMethodService) GetPaymentMethod(ctx context.Context, id string, tenantID string) (*dto.PaymentMethodResponse, error) {
	pm, err := s.owned(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentMethodResponse(pm), nil
}

func (s *paymentMethodService) ListPaymentMethods(ctx context.Context, tenantID string) (*dto.ListPaymentMethodsResponse, error) {
	filter := types.NewPaymentMethodFilter()
	filter.TenantID = tenantID

	methods, err := s.PaymentMethodRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := lo.Map(methods, func(pm *paymentmethod.PaymentMethod, _ int) *dto.PaymentMethodResponse {
		return dto.NewPaymentMethodResponse(pm)
	})
	return types.NewListResponse(items, len(items), 0, 0), nil
}

func (s *paymentMethodService) UpdatePaymentMethod(ctx context.Context, id string, tenantID string, req *dto.UpdatePaymentMethodRequest) (*dto.PaymentMethodResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pm, err := s.owned(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if req.Nickname != nil {
		pm.Nickname = strings.TrimSpace(*req.Nickname)
	}
	if req.BillingAddress != nil {
		pm.BillingAddress = *req.BillingAddress
	}
	pm.Touch(ctx)
	if err := s.PaymentMethodRepo.Update(ctx, pm); err != nil {
		return nil, err
	}

	if lo.FromPtr(req.IsDefault) && !pm.IsDefault {
		return s.SetDefault(ctx, pm.ID, tenantID)
	}
	return dto.NewPaymentMethodResponse(pm), nil
}

func (s *paymentMethodService) SetDefault(ctx context.Context, id string, tenantID string) (*dto.PaymentMethodResponse, error) {
	var pm *paymentmethod.PaymentMethod
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		pm, err = s.owned(ctx, id, tenantID)
		if err != nil {
			return err
		}
		if !pm.IsUsable(s.Now()) {
			return ierr.NewError("payment method is not usable").
				WithHint("An expired or inactive payment method cannot be the default").
				Mark(ierr.ErrInvalidOperation)
		}
		if err := s.lockDefault(ctx, pm.TenantID); err != nil {
			return err
		}

		pm.IsDefault = true
		pm.Touch(ctx)
		if err := s.PaymentMethodRepo.Update(ctx, pm); err != nil {
			return err
		}
		return s.PaymentMethodRepo.ClearDefault(ctx, pm.TenantID, pm.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("set default payment method",
		"payment_method_id", pm.ID,
		"tenant_id", pm.TenantID)
	return dto.NewPaymentMethodResponse(pm), nil
}

func (s *paymentMethodService) DeletePaymentMethod(ctx context.Context, id string, tenantID string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		pm, err := s.owned(ctx, id, tenantID)
		if err != nil {
			return err
		}

		inUse, err := s.RecurringScheduleRepo.CountActiveByPaymentMethod(ctx, pm.ID)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return ierr.NewError("payment method is used by auto-pay").
				WithHint("Cancel or update the auto-pay schedule using this payment method before removing it").
				WithReportableDetails(map[string]interface{}{
					"payment_method_id": pm.ID,
					"active_schedules":  inUse,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		if err := s.lockDefault(ctx, pm.TenantID); err != nil {
			return err
		}
		wasDefault := pm.IsDefault
		pm.Status = types.PaymentMethodStatusDeleted
		pm.IsDefault = false
		pm.Touch(ctx)
		if err := s.PaymentMethodRepo.Update(ctx, pm); err != nil {
			return err
		}

		s.Logger.WithContext(ctx).Infow("deleted payment method",
			"payment_method_id", pm.ID,
			"tenant_id", pm.TenantID)

		if !wasDefault {
			return nil
		}
		return s.promoteDefault(ctx, pm.TenantID)
	})
}

// promoteDefault makes the most recent usable method the default.
func (s *paymentMethodService) promoteDefault(ctx context.Context, tenantID string) error {
	remaining, err := s.PaymentMethodRepo.List(ctx, &types.PaymentMethodFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		TenantID:    tenantID,
		Statuses:    []types.PaymentMethodStatus{types.PaymentMethodStatusActive},
	})
	if err != nil {
		return err
	}
	next, ok := lo.Find(remaining, func(pm *paymentmethod.PaymentMethod) bool {
		return pm.IsUsable(s.Now())
	})
	if !ok {
		return nil
	}
	next.IsDefault = true
	next.Touch(ctx)
	return s.PaymentMethodRepo.Update(ctx, next)
}

func (s *paymentMethodService) MarkExpiredCards(ctx context.Context) (int, error) {
	active, err := s.PaymentMethodRepo.List(ctx, &types.PaymentMethodFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		Statuses:    []types.PaymentMethodStatus{types.PaymentMethodStatusActive},
	})
	if err != nil {
		return 0, err
	}

	now := s.Now()
	expired := lo.Filter(active, func(pm *paymentmethod.PaymentMethod, _ int) bool {
		return pm.IsCardExpired(now)
	})
	for _, pm := range expired {
		pm.Status = types.PaymentMethodStatusExpired
		pm.Touch(ctx)
		if err := s.PaymentMethodRepo.Update(ctx, pm); err != nil {
			return 0, err
		}
	}

	if len(expired) > 0 {
		s.Logger.WithContext(ctx).Infow("marked expired cards",
			"count", len(expired))
	}
	return len(expired), nil
}

func (s *paymentMethodService) owned(ctx context.Context, id string, tenantID string) (*paymentmethod.PaymentMethod, error) {
	if id == "" {
		return nil, ierr.NewError("payment method id is required").
			WithHint("Please provide a valid payment method ID").
			Mark(ierr.ErrValidation)
	}
	pm, err := s.PaymentMethodRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if (tenantID != "" && pm.TenantID != tenantID) || pm.Status == types.PaymentMethodStatusDeleted {
		return nil, ierr.NewError("payment method not visible to tenant").
			WithHintf("Payment method %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return pm, nil
}

func (s *paymentMethodService) lockDefault(ctx context.Context, tenantID string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopePaymentMethodDefault, map[string]interface{}{"tenant_id": tenantID}),
	})
}
