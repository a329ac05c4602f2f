package schedulerun

import (
	"context"

	"github.com/rentpay/rentpay/internal/types"
)

type Repository interface {
	Create(ctx context.Context, run *ScheduleRun) error
	Update(ctx context.Context, run *ScheduleRun) error
	Get(ctx context.Context, id string) (*ScheduleRun, error)
	List(ctx context.Context, filter *types.ScheduleRunFilter) ([]*ScheduleRun, error)
	// GetLatest returns the most recently started run, or nil when none exists.
	GetLatest(ctx context.Context) (*ScheduleRun, error)
}
