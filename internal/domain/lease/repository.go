package lease

import (
	"context"
)

// Repository is the Ledger Store view of leases. Lease administration lives in
// another service; this core reads leases and creates them only for seeding.
type Repository interface {
	Create(ctx context.Context, l *Lease) error
	Get(ctx context.Context, id string) (*Lease, error)
	Update(ctx context.Context, l *Lease) error
}
