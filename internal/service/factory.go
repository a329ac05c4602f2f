package service

import (
	"context"
	"time"

	"github.com/rentpay/rentpay/internal/cache"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	"github.com/rentpay/rentpay/internal/integration/factory"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/types"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	LeaseRepo             lease.Repository
	PaymentMethodRepo     paymentmethod.Repository
	RentPaymentRepo       rentpayment.Repository
	RecurringScheduleRepo recurringschedule.Repository
	ScheduleRunRepo       schedulerun.Repository

	// Collaborators
	Gateways       *factory.GatewayFactory
	EventPublisher publisher.EventPublisher
	Cache          cache.Cache
	Sentry         *sentry.Service
	Clock          types.Clock
}

// Now returns the current time from the configured clock.
func (p ServiceParams) Now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// Location is the calendar zone that decides what "today" is.
func (p ServiceParams) Location() *time.Location {
	loc, err := types.LoadLocation(p.Config.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LockSchedule takes the per-schedule advisory lock. Must run inside DB.WithTx.
func (p ServiceParams) LockSchedule(ctx context.Context, scheduleID string) error {
	return p.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopeRecurringSchedule, map[string]interface{}{"schedule_id": scheduleID}),
	})
}

// Today is the current calendar day at midnight in Location.
func (p ServiceParams) Today() time.Time {
	return types.DateOf(p.Now(), p.Location())
}
