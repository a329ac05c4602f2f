package paymentmethod

import (
	"context"

	"github.com/rentpay/rentpay/internal/types"
)

type Repository interface {
	Create(ctx context.Context, pm *PaymentMethod) error
	Get(ctx context.Context, id string) (*PaymentMethod, error)
	List(ctx context.Context, filter *types.PaymentMethodFilter) ([]*PaymentMethod, error)
	Update(ctx context.Context, pm *PaymentMethod) error
	// ClearDefault unsets is_default on every method of the tenant except keepID.
	ClearDefault(ctx context.Context, tenantID string, keepID string) error
}
