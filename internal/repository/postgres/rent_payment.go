package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/types"
	"gorm.io/gorm"
)

type rentPaymentRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewRentPaymentRepository(client *postgres.Client, log *logger.Logger) rentpayment.Repository {
	return &rentPaymentRepository{client: client, log: log}
}

func (r *rentPaymentRepository) Create(ctx context.Context, p *rentpayment.RentPayment) error {
	span := StartRepositorySpan(ctx, "rent_payment", "create", map[string]interface{}{
		"payment_id": p.ID,
		"lease_id":   p.LeaseID,
	})
	defer FinishSpan(span)

	row, err := rentPaymentRowOf(p)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	if err := r.client.Querier(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		return r.writeError(err, p, "Failed to create rent payment")
	}
	SetSpanSuccess(span)
	return nil
}

func (r *rentPaymentRepository) Update(ctx context.Context, p *rentpayment.RentPayment) error {
	span := StartRepositorySpan(ctx, "rent_payment", "update", map[string]interface{}{"payment_id": p.ID})
	defer FinishSpan(span)

	row, err := rentPaymentRowOf(p)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	res := r.client.Querier(ctx).Model(&rentPaymentRow{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"amount":                 row.Amount,
		"late_fee_amount":        row.LateFeeAmount,
		"processing_fee":         row.ProcessingFee,
		"total_amount":           row.TotalAmount,
		"payment_date":           row.PaymentDate,
		"payment_status":         row.PaymentStatus,
		"gateway_transaction_id": row.GatewayTransactionID,
		"authorization_code":     row.AuthorizationCode,
		"response_code":          row.ResponseCode,
		"failure_reason":         row.FailureReason,
		"refund_amount":          row.RefundAmount,
		"refund_date":            row.RefundDate,
		"refund_reason":          row.RefundReason,
		"refund_transaction_id":  row.RefundTransactionID,
		"metadata":               row.Metadata,
		"updated_at":             row.UpdatedAt,
		"updated_by":             row.UpdatedBy,
	})
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return r.writeError(res.Error, p, "Failed to update rent payment")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("rent payment not found").
			WithHintf("Payment %s not found", p.ID).
			WithReportableDetails(map[string]interface{}{"payment_id": p.ID}).
			Mark(ierr.ErrNotFound)
	}
	SetSpanSuccess(span)
	return nil
}

func (r *rentPaymentRepository) Get(ctx context.Context, id string) (*rentpayment.RentPayment, error) {
	return r.getOne(ctx, "get", "id = ?", id)
}

func (r *rentPaymentRepository) GetByGatewayTransactionID(ctx context.Context, transactionID string) (*rentpayment.RentPayment, error) {
	return r.getOne(ctx, "get_by_transaction", "gateway_transaction_id = ?", transactionID)
}

func (r *rentPaymentRepository) GetByRefundTransactionID(ctx context.Context, refundTransactionID string) (*rentpayment.RentPayment, error) {
	return r.getOne(ctx, "get_by_refund_transaction", "refund_transaction_id = ?", refundTransactionID)
}

func (r *rentPaymentRepository) FindActiveForPeriod(ctx context.Context, leaseID string, month, year int) (*rentpayment.RentPayment, error) {
	span := StartRepositorySpan(ctx, "rent_payment", "find_active_for_period", map[string]interface{}{
		"lease_id": leaseID,
		"month":    month,
		"year":     year,
	})
	defer FinishSpan(span)

	var rows []rentPaymentRow
	err := r.client.Querier(ctx).
		Where("lease_id = ? AND payment_month = ? AND payment_year = ?", leaseID, month, year).
		Where("payment_status IN ?", rentpayment.ActivePeriodStatuses).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to check existing payments for the period").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	if len(rows) == 0 {
		return nil, nil
	}
	return r.toDomain(&rows[0])
}

func (r *rentPaymentRepository) List(ctx context.Context, filter *types.RentPaymentFilter) ([]*rentpayment.RentPayment, error) {
	if filter == nil {
		filter = types.NewRentPaymentFilter()
	}
	span := StartRepositorySpan(ctx, "rent_payment", "list", map[string]interface{}{"tenant_id": filter.TenantID})
	defer FinishSpan(span)

	var rows []rentPaymentRow
	err := r.client.Querier(ctx).
		Scopes(rentPaymentFilter(filter), paginate(filter.QueryFilter)).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list rent payments").
			Mark(ierr.ErrDatabase)
	}

	out := make([]*rentpayment.RentPayment, 0, len(rows))
	for i := range rows {
		p, err := r.toDomain(&rows[i])
		if err != nil {
			SetSpanError(span, err)
			return nil, err
		}
		out = append(out, p)
	}
	SetSpanSuccess(span)
	return out, nil
}

func (r *rentPaymentRepository) Count(ctx context.Context, filter *types.RentPaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewRentPaymentFilter()
	}
	var count int64
	if err := r.client.Querier(ctx).Model(&rentPaymentRow{}).
		Scopes(rentPaymentFilter(filter)).
		Count(&count).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count rent payments").
			Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func rentPaymentFilter(filter *types.RentPaymentFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if len(filter.LeaseIDs) > 0 {
			q = q.Where("lease_id IN ?", filter.LeaseIDs)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("payment_status IN ?", filter.Statuses)
		}
		if filter.PaymentMonth != 0 {
			q = q.Where("payment_month = ?", filter.PaymentMonth)
		}
		if filter.PaymentYear != 0 {
			q = q.Where("payment_year = ?", filter.PaymentYear)
		}
		if filter.RecurringScheduleID != "" {
			q = q.Where("recurring_schedule_id = ?", filter.RecurringScheduleID)
		}
		return q
	}
}

func (r *rentPaymentRepository) getOne(ctx context.Context, op, cond string, arg string) (*rentpayment.RentPayment, error) {
	span := StartRepositorySpan(ctx, "rent_payment", op, map[string]interface{}{"key": arg})
	defer FinishSpan(span)

	var row rentPaymentRow
	if err := r.client.Querier(ctx).Where(cond, arg).Take(&row).Error; err != nil {
		SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s not found", arg).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get rent payment").
			Mark(ierr.ErrDatabase)
	}
	SetSpanSuccess(span)
	return r.toDomain(&row)
}

func (r *rentPaymentRepository) toDomain(row *rentPaymentRow) (*rentpayment.RentPayment, error) {
	p, err := row.toDomain(r.client.Location())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read rent payment").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func (r *rentPaymentRepository) writeError(err error, p *rentpayment.RentPayment, hint string) error {
	if postgres.IsUniqueViolation(err, postgres.ConstraintRentPaymentPeriod) {
		return ierr.WithError(err).
			WithHintf("Payment for %s has already been made or is in progress", p.PeriodLabel()).
			WithReportableDetails(map[string]interface{}{
				"lease_id":      p.LeaseID,
				"payment_month": p.PaymentMonth,
				"payment_year":  p.PaymentYear,
			}).
			Mark(ierr.ErrDuplicatePeriodPayment)
	}
	if postgres.IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithHint("A payment with this gateway transaction already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}
