package testutil

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
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all in-memory repositories.
type Stores struct {
	LeaseRepo             lease.Repository
	PaymentMethodRepo     paymentmethod.Repository
	RentPaymentRepo       rentpayment.Repository
	RecurringScheduleRepo recurringschedule.Repository
	ScheduleRunRepo       schedulerun.Repository
}

// BaseServiceTestSuite wires in-memory stores, a fake gateway and a pinned
// clock for service and runner tests.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	db        *MockPostgresClient
	logger    *logger.Logger
	config    *config.Configuration
	publisher *RecordingPublisher
	gateway   *FakeGateway
	gateways  *factory.GatewayFactory
	clock     *types.FixedClock
	cache     cache.Cache
}

// DefaultTestNow is noon UTC on June 10, 2025.
var DefaultTestNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetRequestID(types.SetUserID(context.Background(), "user_test"), "req_test")
	s.config = config.GetDefaultConfig()
	s.config.Scheduler.Timezone = "UTC"
	s.config.Scheduler.InterScheduleDelay = 0
	s.config.Gateway.Timeout = 2 * time.Second
	s.logger = logger.NewNopLogger()
	s.db = NewMockPostgresClient()
	s.publisher = NewRecordingPublisher()
	s.gateway = NewFakeGateway()
	s.gateways = factory.NewGatewayFactoryWith(s.gateway)
	s.clock = types.NewFixedClock(DefaultTestNow)
	s.cache = cache.NewInMemoryCache()
	s.setupStores()
}

func (s *BaseServiceTestSuite) TearDownTest() {
	s.publisher.Clear()
	s.cache.Flush(s.ctx)
}

func (s *BaseServiceTestSuite) setupStores() {
	leases := NewInMemoryLeaseStore()
	s.stores = Stores{
		LeaseRepo:             leases,
		PaymentMethodRepo:     NewInMemoryPaymentMethodStore(),
		RentPaymentRepo:       NewInMemoryRentPaymentStore(),
		RecurringScheduleRepo: NewInMemoryRecurringScheduleStore(leases),
		ScheduleRunRepo:       NewInMemoryScheduleRunStore(),
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetPublisher() *RecordingPublisher {
	return s.publisher
}

func (s *BaseServiceTestSuite) GetGateway() *FakeGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetGatewayFactory() *factory.GatewayFactory {
	return s.gateways
}

func (s *BaseServiceTestSuite) GetClock() *types.FixedClock {
	return s.clock
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// SetToday moves the clock to noon UTC of the given day.
func (s *BaseServiceTestSuite) SetToday(year int, month time.Month, day int) time.Time {
	now := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	s.clock.Set(now)
	return types.DateOf(now, time.UTC)
}

// CreateLease stores an active lease for tenantID.
func (s *BaseServiceTestSuite) CreateLease(tenantID string, opts ...func(*lease.Lease)) *lease.Lease {
	l := NewTestLease(tenantID)
	for _, opt := range opts {
		opt(l)
	}
	s.Require().NoError(s.stores.LeaseRepo.Create(s.ctx, l))
	return l
}

// CreatePaymentMethod stores an active card for tenantID.
func (s *BaseServiceTestSuite) CreatePaymentMethod(tenantID string, opts ...func(*paymentmethod.PaymentMethod)) *paymentmethod.PaymentMethod {
	pm := NewTestCard(tenantID)
	for _, opt := range opts {
		opt(pm)
	}
	s.Require().NoError(s.stores.PaymentMethodRepo.Create(s.ctx, pm))
	return pm
}
