package service

import (
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/testutil"
)

// newTestParams wires ServiceParams to the suite's in-memory collaborators.
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:                s.GetLogger(),
		Config:                s.GetConfig(),
		DB:                    s.GetDB(),
		LeaseRepo:             stores.LeaseRepo,
		PaymentMethodRepo:     stores.PaymentMethodRepo,
		RentPaymentRepo:       stores.RentPaymentRepo,
		RecurringScheduleRepo: stores.RecurringScheduleRepo,
		ScheduleRunRepo:       stores.ScheduleRunRepo,
		Gateways:              s.GetGatewayFactory(),
		EventPublisher:        s.GetPublisher(),
		Cache:                 s.GetCache(),
		Sentry:                sentry.NewNoopService(),
		Clock:                 s.GetClock(),
	}
}
