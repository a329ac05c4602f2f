package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rentpay/rentpay/internal/domain/lease"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"gorm.io/gorm"
)

type leaseRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewLeaseRepository(client *postgres.Client, log *logger.Logger) lease.Repository {
	return &leaseRepository{client: client, log: log}
}

func (r *leaseRepository) Create(ctx context.Context, l *lease.Lease) error {
	span := StartRepositorySpan(ctx, "lease", "create", map[string]interface{}{"lease_id": l.ID})
	defer FinishSpan(span)

	if err := r.client.Querier(ctx).Create(leaseRowOf(l)).Error; err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("The unit already has an active lease").
				WithReportableDetails(map[string]interface{}{"unit_id": l.UnitID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create lease").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return nil
}

func (r *leaseRepository) Get(ctx context.Context, id string) (*lease.Lease, error) {
	span := StartRepositorySpan(ctx, "lease", "get", map[string]interface{}{"lease_id": id})
	defer FinishSpan(span)

	var row leaseRow
	if err := r.client.Querier(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Lease %s not found", id).
				WithReportableDetails(map[string]interface{}{"lease_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get lease").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return row.toDomain(r.client.Location()), nil
}

func (r *leaseRepository) Update(ctx context.Context, l *lease.Lease) error {
	span := StartRepositorySpan(ctx, "lease", "update", map[string]interface{}{"lease_id": l.ID})
	defer FinishSpan(span)

	res := r.client.Querier(ctx).Model(&leaseRow{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
		"monthly_rent":      l.MonthlyRent,
		"security_deposit":  l.SecurityDeposit,
		"lease_start_date":  dateOf(l.LeaseStartDate),
		"lease_end_date":    dateOf(l.LeaseEndDate),
		"rent_due_day":      l.RentDueDay,
		"grace_period_days": l.GracePeriodDays,
		"late_fee_amount":   l.LateFeeAmount,
		"status":            l.Status,
		"updated_at":        l.UpdatedAt,
		"updated_by":        l.UpdatedBy,
	})
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return ierr.WithError(res.Error).
			WithHint("Failed to update lease").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("lease not found").
			WithHintf("Lease %s not found", l.ID).
			Mark(ierr.ErrNotFound)
	}
	SetSpanSuccess(span)
	return nil
}
