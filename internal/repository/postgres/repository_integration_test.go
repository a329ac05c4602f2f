package postgres

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type LedgerStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	client    *postgres.Client

	leases    lease.Repository
	methods   paymentmethod.Repository
	payments  rentpayment.Repository
	schedules recurringschedule.Repository

	lease  *lease.Lease
	method *paymentmethod.PaymentMethod
}

func TestLedgerStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ledger store integration test in short mode")
	}
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rentpay"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sql.Open("postgres", dsn)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return db.PingContext(ctx) == nil }, time.Minute, time.Second)

	log := logger.NewNopLogger()
	s.client, err = postgres.NewClient(db, config.GetDefaultConfig(), log, sentry.NewNoopService())
	s.Require().NoError(err)
	s.Require().NoError(s.client.Migrate(ctx))
	// migrations are idempotent
	s.Require().NoError(s.client.Migrate(ctx))

	s.leases = NewLeaseRepository(s.client, log)
	s.methods = NewPaymentMethodRepository(s.client, log)
	s.payments = NewRentPaymentRepository(s.client, log)
	s.schedules = NewRecurringScheduleRepository(s.client, log)
}

func (s *LedgerStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *LedgerStoreSuite) SetupTest() {
	s.Require().NoError(s.client.Exec(s.ctx,
		`TRUNCATE schedule_runs, recurring_schedules, rent_payments, payment_methods, leases`))

	s.lease = &lease.Lease{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEASE),
		UnitID:          "unit_1",
		PropertyID:      "prop_1",
		TenantID:        "tenant_1",
		MonthlyRent:     decimal.NewFromInt(1500),
		LeaseStartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:    time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		RentDueDay:      1,
		GracePeriodDays: lease.DefaultGracePeriodDays,
		Status:          types.LeaseStatusActive,
		BaseModel:       types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.leases.Create(s.ctx, s.lease))

	s.method = &paymentmethod.PaymentMethod{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		TenantID:        "tenant_1",
		PaymentType:     types.PaymentTypeCard,
		GatewayProvider: types.GatewayProviderCybersource,
		Token:           "tok_1",
		IsDefault:       true,
		Status:          types.PaymentMethodStatusActive,
		CardLastFour:    "4242",
		CardBrand:       "visa",
		CardExpiryMonth: 12,
		CardExpiryYear:  2030,
		BillingAddress:  paymentmethod.BillingAddress{City: "Austin", Country: "US"},
		BaseModel:       types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.methods.Create(s.ctx, s.method))
}

func (s *LedgerStoreSuite) newPayment(status types.PaymentStatus) *rentpayment.RentPayment {
	p := &rentpayment.RentPayment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RENT_PAYMENT),
		LeaseID:         s.lease.ID,
		TenantID:        s.lease.TenantID,
		PaymentMethodID: s.method.ID,
		Amount:          decimal.NewFromInt(1500),
		LateFeeAmount:   decimal.NewFromInt(50),
		Currency:        types.DefaultCurrency,
		PaymentMonth:    3,
		PaymentYear:     2025,
		PaymentType:     types.PaymentTypeCard,
		PaymentStatus:   status,
		GatewayProvider: types.GatewayProviderCybersource,
		Metadata:        map[string]string{"source": "test"},
		BaseModel:       types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(p.Validate())
	return p
}

func (s *LedgerStoreSuite) TestRentPayment_RoundTrip() {
	p := s.newPayment(types.PaymentStatusProcessing)
	s.Require().NoError(s.payments.Create(s.ctx, p))

	p.PaymentStatus = types.PaymentStatusCompleted
	p.GatewayTransactionID = "txn_1"
	p.PaymentDate = lo.ToPtr(time.Now().UTC())
	s.Require().NoError(s.payments.Update(s.ctx, p))

	got, err := s.payments.GetByGatewayTransactionID(s.ctx, "txn_1")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.True(got.TotalAmount.Equal(decimal.NewFromInt(1550)))
	s.Equal("test", got.Metadata["source"])
	s.Nil(got.Refund)

	_, err = s.payments.Get(s.ctx, "rpay_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *LedgerStoreSuite) TestRentPayment_PeriodGuard() {
	first := s.newPayment(types.PaymentStatusProcessing)
	s.Require().NoError(s.payments.Create(s.ctx, first))

	second := s.newPayment(types.PaymentStatusProcessing)
	err := s.payments.Create(s.ctx, second)
	s.True(ierr.IsDuplicatePeriodPayment(err))

	// a failed attempt frees the period
	first.PaymentStatus = types.PaymentStatusFailed
	s.Require().NoError(s.payments.Update(s.ctx, first))
	s.Require().NoError(s.payments.Create(s.ctx, second))

	found, err := s.payments.FindActiveForPeriod(s.ctx, s.lease.ID, 3, 2025)
	s.Require().NoError(err)
	s.Equal(second.ID, found.ID)

	none, err := s.payments.FindActiveForPeriod(s.ctx, s.lease.ID, 4, 2025)
	s.Require().NoError(err)
	s.Nil(none)
}

func (s *LedgerStoreSuite) TestRentPayment_ConcurrentSettlementsForOnePeriod() {
	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := s.newPayment(types.PaymentStatusProcessing)
			err := s.client.WithTx(s.ctx, func(ctx context.Context) error {
				key := types.GenerateLockKey(types.LockScopeRentPaymentPeriod, map[string]interface{}{
					"lease_id": p.LeaseID, "month": p.PaymentMonth, "year": p.PaymentYear,
				})
				if err := s.client.LockKey(ctx, types.LockRequest{Key: key}); err != nil {
					return err
				}
				existing, err := s.payments.FindActiveForPeriod(ctx, p.LeaseID, p.PaymentMonth, p.PaymentYear)
				if err != nil {
					return err
				}
				if existing != nil {
					return ierr.NewError("duplicate").Mark(ierr.ErrDuplicatePeriodPayment)
				}
				return s.payments.Create(ctx, p)
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if ierr.IsDuplicatePeriodPayment(err) {
				duplicates++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(attempts-1, duplicates)
	count, err := s.payments.Count(s.ctx, &types.RentPaymentFilter{LeaseIDs: []string{s.lease.ID}})
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *LedgerStoreSuite) TestRecurringSchedule_ListDue() {
	today := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	mk := func(day int, last *time.Time) *recurringschedule.RecurringSchedule {
		sch := &recurringschedule.RecurringSchedule{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_SCHEDULE),
			LeaseID:            s.lease.ID,
			TenantID:           s.lease.TenantID,
			PaymentMethodID:    s.method.ID,
			IsActive:           true,
			PaymentDay:         day,
			ScheduleType:       types.RecurringScheduleTypeMonthly,
			StartDate:          time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			DefaultAmount:      s.lease.MonthlyRent,
			NextPaymentDate:    today,
			LastPaymentDate:    last,
			SendReminderEmail:  true,
			ReminderDaysBefore: types.DefaultReminderDaysBefore,
			BaseModel:          types.GetDefaultBaseModel(s.ctx),
		}
		return sch
	}

	due := mk(31, lo.ToPtr(time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)))
	s.Require().NoError(s.schedules.Create(s.ctx, due))

	got, err := s.schedules.ListDue(s.ctx, today)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(due.ID, got[0].ID)
	s.Equal(31, got[0].PaymentDay)

	// paid this month
	due.LastPaymentDate = lo.ToPtr(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.schedules.Update(s.ctx, due))
	got, err = s.schedules.ListDue(s.ctx, today)
	s.Require().NoError(err)
	s.Empty(got)

	n, err := s.schedules.DeactivateByLease(s.ctx, s.lease.ID)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.schedules.GetActiveByLease(s.ctx, s.lease.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *LedgerStoreSuite) newSchedule(day int) *recurringschedule.RecurringSchedule {
	return &recurringschedule.RecurringSchedule{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_SCHEDULE),
		LeaseID:            s.lease.ID,
		TenantID:           s.lease.TenantID,
		PaymentMethodID:    s.method.ID,
		IsActive:           true,
		PaymentDay:         day,
		ScheduleType:       types.RecurringScheduleTypeMonthly,
		StartDate:          time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		DefaultAmount:      s.lease.MonthlyRent,
		NextPaymentDate:    time.Date(2025, time.July, day, 0, 0, 0, 0, time.UTC),
		SendReminderEmail:  true,
		ReminderDaysBefore: types.DefaultReminderDaysBefore,
		BaseModel:          types.GetDefaultBaseModel(s.ctx),
	}
}

func (s *LedgerStoreSuite) TestRecurringSchedule_UpdateRunOutcomeLeavesConfiguration() {
	sch := s.newSchedule(1)
	s.Require().NoError(s.schedules.Create(s.ctx, sch))

	// a run holding an older copy records its outcome after the tenant cancelled
	stale := *sch
	sch.IsActive = false
	s.Require().NoError(s.schedules.Update(s.ctx, sch))

	paid := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	stale.RecordSuccess(paid)
	s.Require().NoError(s.schedules.UpdateRunOutcome(s.ctx, &stale))

	got, err := s.schedules.Get(s.ctx, sch.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
	s.Equal(1, got.TotalPaymentsMade)
	s.Require().NotNil(got.LastPaymentDate)
	s.True(got.LastPaymentDate.Equal(paid))
	s.True(got.NextPaymentDate.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)))

	missing := s.newSchedule(1)
	s.True(ierr.IsNotFound(s.schedules.UpdateRunOutcome(s.ctx, missing)))
}

func (s *LedgerStoreSuite) TestRecurringSchedule_CountMatchesFilter() {
	first := s.newSchedule(1)
	s.Require().NoError(s.schedules.Create(s.ctx, first))
	_, err := s.schedules.DeactivateByLease(s.ctx, s.lease.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.schedules.Create(s.ctx, s.newSchedule(5)))

	filter := &types.RecurringScheduleFilter{
		QueryFilter: &types.QueryFilter{Limit: lo.ToPtr(1)},
		TenantID:    s.lease.TenantID,
	}
	page, err := s.schedules.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(page, 1)

	total, err := s.schedules.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(2, total)

	filter.ActiveOnly = true
	active, err := s.schedules.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(1, active)
}

func TestDateColumn(t *testing.T) {
	var d date
	require.NoError(t, d.Scan(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)))
	v, err := d.Value()
	require.NoError(t, err)
	require.Equal(t, "2025-02-28", v)

	require.NoError(t, d.Scan([]byte("2024-02-29")))
	require.Equal(t, 29, d.Time.Day())

	// midnight in a zone west of UTC is still the same calendar day
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	require.Equal(t, "2025-07-01", lo.Must(dateOf(time.Date(2025, time.July, 1, 0, 0, 0, 0, chicago)).Value()))
	require.Equal(t, 1, d.In(chicago).Day())

	require.NoError(t, d.Scan(nil))
	require.False(t, d.Valid)
	v, err = d.Value()
	require.NoError(t, err)
	require.Nil(t, v)
	require.Nil(t, d.Ptr(time.UTC))

	require.Error(t, d.Scan(42))
}
