package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/types"
	"gorm.io/gorm"
)

type paymentMethodRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewPaymentMethodRepository(client *postgres.Client, log *logger.Logger) paymentmethod.Repository {
	return &paymentMethodRepository{client: client, log: log}
}

func (r *paymentMethodRepository) Create(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	span := StartRepositorySpan(ctx, "payment_method", "create", map[string]interface{}{"payment_method_id": pm.ID})
	defer FinishSpan(span)

	row, err := paymentMethodRowOf(pm)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	if err := r.client.Querier(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create payment method").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return nil
}

func (r *paymentMethodRepository) Get(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	span := StartRepositorySpan(ctx, "payment_method", "get", map[string]interface{}{"payment_method_id": id})
	defer FinishSpan(span)

	var row paymentMethodRow
	err := r.client.Querier(ctx).
		Where("id = ? AND status <> ?", id, types.PaymentMethodStatusDeleted).
		Take(&row).Error
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Payment method %s not found", id).
				WithReportableDetails(map[string]interface{}{"payment_method_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment method").
			Mark(ierr.ErrDatabase)
	}
	pm, err := row.toDomain()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read payment method").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return pm, nil
}

func (r *paymentMethodRepository) List(ctx context.Context, filter *types.PaymentMethodFilter) ([]*paymentmethod.PaymentMethod, error) {
	if filter == nil {
		filter = types.NewPaymentMethodFilter()
	}
	span := StartRepositorySpan(ctx, "payment_method", "list", map[string]interface{}{"tenant_id": filter.TenantID})
	defer FinishSpan(span)

	q := r.client.Querier(ctx).Model(&paymentMethodRow{})
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	} else {
		q = q.Where("status <> ?", types.PaymentMethodStatusDeleted)
	}

	var rows []paymentMethodRow
	if err := q.Order("is_default DESC").Order("created_at DESC").
		Scopes(paginate(filter.QueryFilter)).
		Find(&rows).Error; err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list payment methods").
			Mark(ierr.ErrDatabase)
	}

	out := make([]*paymentmethod.PaymentMethod, 0, len(rows))
	for i := range rows {
		pm, err := rows[i].toDomain()
		if err != nil {
			SetSpanError(span, err)
			return nil, ierr.WithError(err).
				WithHint("Failed to read payment method").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, pm)
	}
	SetSpanSuccess(span)
	return out, nil
}

func (r *paymentMethodRepository) Update(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	span := StartRepositorySpan(ctx, "payment_method", "update", map[string]interface{}{"payment_method_id": pm.ID})
	defer FinishSpan(span)

	address, err := jsonColumn(pm.BillingAddress, "{}")
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	res := r.client.Querier(ctx).Model(&paymentMethodRow{}).Where("id = ?", pm.ID).Updates(map[string]interface{}{
		"is_default":        pm.IsDefault,
		"status":            pm.Status,
		"nickname":          pm.Nickname,
		"card_expiry_month": pm.CardExpiryMonth,
		"card_expiry_year":  pm.CardExpiryYear,
		"billing_address":   address,
		"updated_at":        pm.UpdatedAt,
		"updated_by":        pm.UpdatedBy,
	})
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return ierr.WithError(res.Error).
			WithHint("Failed to update payment method").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("payment method not found").
			WithHintf("Payment method %s not found", pm.ID).
			Mark(ierr.ErrNotFound)
	}
	SetSpanSuccess(span)
	return nil
}

func (r *paymentMethodRepository) ClearDefault(ctx context.Context, tenantID string, keepID string) error {
	err := r.client.Querier(ctx).Model(&paymentMethodRow{}).
		Where("tenant_id = ? AND id <> ? AND is_default", tenantID, keepID).
		Updates(map[string]interface{}{
			"is_default": false,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to clear default payment method").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
