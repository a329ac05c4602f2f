package rentpayment

import (
	"context"

	"github.com/rentpay/rentpay/internal/types"
)

// Repository is the Ledger Store for rent payments. It is the single arbiter of
// the per-period guard: Create and Update must fail with
// ierr.ErrDuplicatePeriodPayment when the write would leave two payments of the
// same lease period in ActivePeriodStatuses.
type Repository interface {
	Create(ctx context.Context, p *RentPayment) error
	Get(ctx context.Context, id string) (*RentPayment, error)
	Update(ctx context.Context, p *RentPayment) error
	List(ctx context.Context, filter *types.RentPaymentFilter) ([]*RentPayment, error)
	Count(ctx context.Context, filter *types.RentPaymentFilter) (int, error)

	// FindActiveForPeriod returns the payment occupying the period, or nil.
	FindActiveForPeriod(ctx context.Context, leaseID string, month, year int) (*RentPayment, error)
	GetByGatewayTransactionID(ctx context.Context, transactionID string) (*RentPayment, error)
	GetByRefundTransactionID(ctx context.Context, refundTransactionID string) (*RentPayment, error)
}
