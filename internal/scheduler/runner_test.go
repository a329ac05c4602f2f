package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rentpay/rentpay/internal/api/dto"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/testutil"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/suite"
)

type RunnerSuite struct {
	testutil.BaseServiceTestSuite
	params   service.ServiceParams
	runner   *Runner
	testData struct {
		lease  *lease.Lease
		method *paymentmethod.PaymentMethod
	}
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.params = service.ServiceParams{
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
	s.runner = s.newRunner(service.NewPaymentSettlementService(s.params), nil)
	s.testData.lease = s.CreateLease("tenant_1")
	s.testData.method = s.CreatePaymentMethod("tenant_1")
}

func (s *RunnerSuite) newRunner(settlement service.PaymentSettlementService, lock RunLock) *Runner {
	r := NewRunner(s.params, settlement, service.NewPaymentMethodService(s.params), lock)
	r.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

// dueSchedule stores an active schedule for l due on day 1 of July 2025.
func (s *RunnerSuite) dueSchedule(l *lease.Lease, methodID string) *recurringschedule.RecurringSchedule {
	sch := testutil.NewTestSchedule(l, methodID, 1, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.GetStores().RecurringScheduleRepo.Create(s.GetContext(), sch))
	return sch
}

func (s *RunnerSuite) leasePayments() *types.RentPaymentFilter {
	filter := types.NewRentPaymentFilter()
	filter.LeaseIDs = []string{s.testData.lease.ID}
	return filter
}

func (s *RunnerSuite) reload(id string) *recurringschedule.RecurringSchedule {
	sch, err := s.GetStores().RecurringScheduleRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sch
}

func (s *RunnerSuite) TestRunDaily_CreatedScheduleChargesOnDueDate() {
	schedules := service.NewRecurringScheduleService(s.params)
	created, err := schedules.CreateSchedule(s.GetContext(), &dto.CreateRecurringScheduleRequest{
		TenantID:        "tenant_1",
		LeaseID:         s.testData.lease.ID,
		PaymentMethodID: s.testData.method.ID,
		PaymentDay:      1,
	})
	s.Require().NoError(err)

	// not due on the day it was created
	run, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerManual)
	s.Require().NoError(err)
	s.Zero(run.Processed)
	s.Zero(s.GetGateway().ChargeCount())

	july1 := s.SetToday(2025, time.July, 1)
	run, err = s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, run.Processed)
	s.Equal(1, run.Succeeded)
	s.Equal(types.ScheduleRunStatusCompleted, run.Status)

	sch := s.reload(created.ID)
	s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), sch.NextPaymentDate)
	s.Equal(1, sch.TotalPaymentsMade)
	s.Zero(sch.FailedPaymentAttempts)
	s.Require().NotNil(sch.LastPaymentDate)
	s.Equal(july1, *sch.LastPaymentDate)

	s.Require().Len(s.GetGateway().Charges, 1)
	charge := s.GetGateway().Charges[0]
	s.True(charge.Amount.Equal(s.testData.lease.MonthlyRent))
	s.Equal("recurring_"+created.ID+"_7_2025", charge.OrderReference)

	payments, err := s.GetStores().RentPaymentRepo.List(s.GetContext(), s.leasePayments())
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.True(payments[0].IsRecurring)
	s.Equal(created.ID, payments[0].RecurringScheduleID)
	s.Equal(types.PaymentStatusCompleted, payments[0].PaymentStatus)

	s.Len(s.GetPublisher().EventsOfType(types.EventAutoPaySucceeded), 1)
	s.Len(s.GetPublisher().EventsOfType(types.EventScheduleRunCompleted), 2)

	// the same day again selects nothing
	run, err = s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerManual)
	s.Require().NoError(err)
	s.Zero(run.Processed)
	s.Equal(1, s.GetGateway().ChargeCount())
}

func (s *RunnerSuite) TestRunDaily_FailureAdvancesSchedule() {
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	s.SetToday(2025, time.July, 1)
	s.GetGateway().Decline("insufficient_funds", "Insufficient funds")

	run, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, run.Failed)
	s.Require().Len(run.Items, 1)
	s.Equal(types.ScheduleOutcomeFailed, run.Items[0].Outcome)
	s.Equal("Insufficient funds", run.Items[0].Error)
	s.NotEmpty(run.Items[0].PaymentID)

	got := s.reload(sch.ID)
	s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), got.NextPaymentDate)
	s.Equal(1, got.FailedPaymentAttempts)
	s.Equal("Insufficient funds", got.LastFailureReason)
	s.Nil(got.LastPaymentDate)
	s.Zero(got.TotalPaymentsMade)
	s.True(got.IsActive)

	failed := s.GetPublisher().EventsOfType(types.EventAutoPayFailed)
	s.Require().Len(failed, 1)
	s.Equal(sch.ID, failed[0].ScheduleID)
}

func (s *RunnerSuite) TestRunDaily_SuccessResetsFailureCount() {
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	sch.FailedPaymentAttempts = 2
	sch.LastFailureReason = "Payment declined"
	s.Require().NoError(s.GetStores().RecurringScheduleRepo.Update(s.GetContext(), sch))
	s.SetToday(2025, time.July, 1)

	_, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)

	got := s.reload(sch.ID)
	s.Zero(got.FailedPaymentAttempts)
	s.Empty(got.LastFailureReason)
	s.Equal(1, got.TotalPaymentsMade)
}

func (s *RunnerSuite) TestRunDaily_SkipsPeriodAlreadyPaid() {
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	manual := testutil.NewTestPayment(s.testData.lease, s.testData.method.ID, 7, 2025, types.PaymentStatusCompleted)
	s.Require().NoError(s.GetStores().RentPaymentRepo.Create(s.GetContext(), manual))
	s.SetToday(2025, time.July, 1)

	run, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, run.Skipped)
	s.Zero(run.Failed)
	s.Zero(s.GetGateway().ChargeCount())

	got := s.reload(sch.ID)
	s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), got.NextPaymentDate)
	s.Zero(got.TotalPaymentsMade)
	s.Zero(got.FailedPaymentAttempts)

	payments, err := s.GetStores().RentPaymentRepo.List(s.GetContext(), s.leasePayments())
	s.Require().NoError(err)
	s.Len(payments, 1)
	s.Len(s.GetPublisher().EventsOfType(types.EventAutoPaySkipped), 1)
}

func (s *RunnerSuite) TestRunDaily_OneFailureDoesNotStopOthers() {
	first := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	otherLease := s.CreateLease("tenant_2")
	otherMethod := s.CreatePaymentMethod("tenant_2")
	second := s.dueSchedule(otherLease, otherMethod.ID)
	s.SetToday(2025, time.July, 1)

	s.GetGateway().FailTransport("connection reset")

	run, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(2, run.Processed)
	s.Equal(1, run.Failed)
	s.Equal(1, run.Succeeded)
	s.Equal(2, s.GetGateway().ChargeCount())

	// both moved on regardless of outcome
	for _, id := range []string{first.ID, second.ID} {
		s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), s.reload(id).NextPaymentDate)
	}
}

func (s *RunnerSuite) TestRunDaily_PanicIsIsolated() {
	first := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	otherLease := s.CreateLease("tenant_2")
	otherMethod := s.CreatePaymentMethod("tenant_2")
	second := s.dueSchedule(otherLease, otherMethod.ID)
	s.SetToday(2025, time.July, 1)

	runner := s.newRunner(&panickingSettlement{
		PaymentSettlementService: service.NewPaymentSettlementService(s.params),
		panicFor:                 first.ID,
	}, nil)

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(2, run.Processed)
	s.Equal(1, run.Failed)
	s.Equal(1, run.Succeeded)

	for _, item := range run.Items {
		if item.ScheduleID == first.ID {
			s.Equal(types.ScheduleOutcomeFailed, item.Outcome)
		} else {
			s.Equal(second.ID, item.ScheduleID)
			s.Equal(types.ScheduleOutcomeSucceeded, item.Outcome)
		}
	}
	s.False(runner.IsRunning())
}

func (s *RunnerSuite) TestRunDaily_RefusesConcurrentTrigger() {
	s.dueSchedule(s.testData.lease, s.testData.method.ID)
	s.SetToday(2025, time.July, 1)
	s.GetGateway().Enqueue(testutil.ChargeOutcome{Delay: 200 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	}()

	s.Require().Eventually(func() bool { return s.GetGateway().ChargeCount() == 1 }, time.Second, 5*time.Millisecond)
	s.True(s.runner.IsRunning())

	run, err := s.runner.ProcessNow(s.GetContext())
	s.Nil(run)
	s.True(ierr.IsRunInProgress(err), "unexpected error: %v", err)

	wg.Wait()
	s.Require().NoError(firstErr)
	s.False(s.runner.IsRunning())
	s.Equal(1, s.GetGateway().ChargeCount())

	runs, err := s.GetStores().ScheduleRunRepo.List(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Len(runs, 1)
}

func (s *RunnerSuite) TestRunDaily_DistributedLockHeld() {
	s.GetConfig().Scheduler.DistributedLock = true
	lock := &stubRunLock{held: true}
	runner := s.newRunner(service.NewPaymentSettlementService(s.params), lock)

	_, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.True(ierr.IsRunInProgress(err))
	s.False(runner.IsRunning())

	lock.held = false
	_, err = runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, lock.released)
}

func (s *RunnerSuite) TestRunDaily_CancelledBetweenSchedules() {
	s.GetConfig().Scheduler.InterScheduleDelay = time.Hour
	s.dueSchedule(s.testData.lease, s.testData.method.ID)
	otherLease := s.CreateLease("tenant_2")
	s.dueSchedule(otherLease, s.CreatePaymentMethod("tenant_2").ID)
	s.SetToday(2025, time.July, 1)

	ctx, cancel := context.WithTimeout(s.GetContext(), 100*time.Millisecond)
	defer cancel()

	run, err := s.runner.RunDaily(ctx, types.ScheduleRunTriggerManual)
	s.Require().Error(err)
	s.Require().NotNil(run)
	s.Equal(types.ScheduleRunStatusAborted, run.Status)
	s.Equal(1, run.Processed)
	s.Equal(1, s.GetGateway().ChargeCount())
	s.Equal(1, ierr.GetReportableDetails(err)["remaining"])
}

func (s *RunnerSuite) TestRunDaily_RetriesSelectionOnDatabaseError() {
	flaky := &flakyScheduleRepo{Repository: s.GetStores().RecurringScheduleRepo, failures: 2}
	s.params.RecurringScheduleRepo = flaky
	s.GetConfig().Scheduler.SelectionRetries = 3
	runner := s.newRunner(service.NewPaymentSettlementService(s.params), nil)

	s.dueSchedule(s.testData.lease, s.testData.method.ID)
	s.SetToday(2025, time.July, 1)

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(3, flaky.calls)
	s.Equal(1, run.Succeeded)
}

func (s *RunnerSuite) TestRunDaily_SelectionGivesUp() {
	flaky := &flakyScheduleRepo{Repository: s.GetStores().RecurringScheduleRepo, failures: 10}
	s.params.RecurringScheduleRepo = flaky
	s.GetConfig().Scheduler.SelectionRetries = 2
	runner := s.newRunner(service.NewPaymentSettlementService(s.params), nil)

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.True(ierr.IsDatabase(err))
	s.Equal(3, flaky.calls)
	s.Equal(types.ScheduleRunStatusAborted, run.Status)
	s.Empty(s.GetPublisher().EventsOfType(types.EventScheduleRunCompleted))
}

func (s *RunnerSuite) TestRunDaily_SendsReminders() {
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	// three days before July 1
	s.SetToday(2025, time.June, 28)

	run, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Zero(run.Processed)

	reminders := s.GetPublisher().EventsOfType(types.EventAutoPayReminderDue)
	s.Require().Len(reminders, 1)
	s.Equal(sch.ID, reminders[0].ScheduleID)
	s.Equal("tenant_1", reminders[0].TenantID)
}

func (s *RunnerSuite) TestRunDaily_MarksExpiredCards() {
	expired := s.CreatePaymentMethod("tenant_1", func(pm *paymentmethod.PaymentMethod) {
		pm.CardExpiryMonth = 5
		pm.CardExpiryYear = 2025
	})

	_, err := s.runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerManual)
	s.Require().NoError(err)

	got, err := s.GetStores().PaymentMethodRepo.Get(s.GetContext(), expired.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentMethodStatusExpired, got.Status)
}

func (s *RunnerSuite) TestProcessSchedule() {
	// not due until July, processed anyway
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)

	run, err := s.runner.ProcessSchedule(s.GetContext(), sch.ID)
	s.Require().NoError(err)
	s.Equal(types.ScheduleRunTriggerSingle, run.Trigger)
	s.Equal(1, run.Succeeded)
	s.Equal(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), s.reload(sch.ID).NextPaymentDate)

	// June is paid now
	run, err = s.runner.ProcessSchedule(s.GetContext(), sch.ID)
	s.Require().NoError(err)
	s.Equal(1, run.Skipped)
	s.Equal(1, s.GetGateway().ChargeCount())

	sch.IsActive = false
	s.Require().NoError(s.GetStores().RecurringScheduleRepo.Update(s.GetContext(), sch))
	_, err = s.runner.ProcessSchedule(s.GetContext(), sch.ID)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.runner.ProcessSchedule(s.GetContext(), "rsch_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *RunnerSuite) TestRunDaily_CancelledAfterSelectionIsNotCharged() {
	first := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	otherLease := s.CreateLease("tenant_2")
	second := s.dueSchedule(otherLease, s.CreatePaymentMethod("tenant_2").ID)
	s.SetToday(2025, time.July, 1)

	other := map[string]string{first.ID: second.ID, second.ID: first.ID}
	schedules := service.NewRecurringScheduleService(s.params)
	var cancelled string
	runner := s.newRunner(&hookedSettlement{
		PaymentSettlementService: service.NewPaymentSettlementService(s.params),
		before: func(ctx context.Context, charging *recurringschedule.RecurringSchedule) {
			// the tenant of the schedule still waiting in the batch cancels it
			cancelled = other[charging.ID]
			_, err := schedules.CancelSchedule(ctx, cancelled, "")
			s.Require().NoError(err)
		},
	}, nil)

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(2, run.Processed)
	s.Equal(1, run.Succeeded)
	s.Equal(1, run.Skipped)
	s.Equal(1, s.GetGateway().ChargeCount())

	for _, item := range run.Items {
		if item.ScheduleID == cancelled {
			s.Equal(types.ScheduleOutcomeSkipped, item.Outcome)
			s.Empty(item.PaymentID)
		}
	}

	got := s.reload(cancelled)
	s.False(got.IsActive)
	s.Zero(got.TotalPaymentsMade)
	s.Nil(got.LastPaymentDate)
	s.Equal(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), got.NextPaymentDate)
	s.Len(s.GetPublisher().EventsOfType(types.EventAutoPaySucceeded), 1)
}

func (s *RunnerSuite) TestRunDaily_EditDuringChargeIsKept() {
	sch := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	replacement := s.CreatePaymentMethod("tenant_1")
	s.SetToday(2025, time.July, 1)

	schedules := service.NewRecurringScheduleService(s.params)
	runner := s.newRunner(&hookedSettlement{
		PaymentSettlementService: service.NewPaymentSettlementService(s.params),
		before: func(ctx context.Context, charging *recurringschedule.RecurringSchedule) {
			_, err := schedules.UpdateSchedule(ctx, charging.ID, "tenant_1", &dto.UpdateRecurringScheduleRequest{
				PaymentMethodID: &replacement.ID,
			})
			s.Require().NoError(err)
			_, err = schedules.CancelSchedule(ctx, charging.ID, "tenant_1")
			s.Require().NoError(err)
		},
	}, nil)

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, run.Succeeded)
	s.Require().Len(s.GetGateway().Charges, 1)

	got := s.reload(sch.ID)
	s.False(got.IsActive, "a run must not reactivate a cancelled schedule")
	s.Equal(replacement.ID, got.PaymentMethodID)
	s.Equal(1, got.TotalPaymentsMade)
	s.Require().NotNil(got.LastPaymentDate)
	s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), got.NextPaymentDate)

	succeeded := s.GetPublisher().EventsOfType(types.EventAutoPaySucceeded)
	s.Require().Len(succeeded, 1)
	s.Equal(sch.ID, succeeded[0].ScheduleID)
}

func (s *RunnerSuite) TestRunDaily_ScheduleProcessedSinceSelectionIsSkipped() {
	first := s.dueSchedule(s.testData.lease, s.testData.method.ID)
	otherLease := s.CreateLease("tenant_2")
	second := s.dueSchedule(otherLease, s.CreatePaymentMethod("tenant_2").ID)
	s.SetToday(2025, time.July, 1)

	other := map[string]string{first.ID: second.ID, second.ID: first.ID}
	var processed string
	hooked := &hookedSettlement{PaymentSettlementService: service.NewPaymentSettlementService(s.params)}
	runner := s.newRunner(hooked, nil)
	hooked.before = func(ctx context.Context, charging *recurringschedule.RecurringSchedule) {
		// an operator pushes the other schedule through by hand
		processed = other[charging.ID]
		single, err := s.newRunner(service.NewPaymentSettlementService(s.params), nil).ProcessSchedule(ctx, processed)
		s.Require().NoError(err)
		s.Equal(1, single.Succeeded)
	}

	run, err := runner.RunDaily(s.GetContext(), types.ScheduleRunTriggerCron)
	s.Require().NoError(err)
	s.Equal(1, run.Succeeded)
	s.Equal(1, run.Skipped)
	s.Equal(2, s.GetGateway().ChargeCount())

	got := s.reload(processed)
	s.Equal(1, got.TotalPaymentsMade)
	s.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), got.NextPaymentDate)
}

func (s *RunnerSuite) TestStatus() {
	status, err := s.runner.Status(s.GetContext())
	s.Require().NoError(err)
	s.False(status.IsRunning)
	s.False(status.IsScheduled)
	s.Nil(status.LastRun)
	s.Equal(s.GetConfig().Scheduler.CronSpec, status.CronSpec)

	s.runner.SetScheduled(true)
	run, err := s.runner.ProcessNow(s.GetContext())
	s.Require().NoError(err)

	status, err = s.runner.Status(s.GetContext())
	s.Require().NoError(err)
	s.True(status.IsScheduled)
	s.Require().NotNil(status.LastRun)
	s.Equal(run.ID, status.LastRun.ID)
	s.Equal(types.ScheduleRunTriggerManual, status.LastRun.Trigger)

	s.GetConfig().Scheduler.Mode = config.SchedulerModeTemporal
	status, err = s.runner.Status(s.GetContext())
	s.Require().NoError(err)
	s.Empty(status.CronSpec)
}

type panickingSettlement struct {
	service.PaymentSettlementService
	panicFor string
}

func (p *panickingSettlement) ProcessRecurringPayment(ctx context.Context, schedule *recurringschedule.RecurringSchedule) (*rentpayment.RentPayment, error) {
	if schedule.ID == p.panicFor {
		panic("boom")
	}
	return p.PaymentSettlementService.ProcessRecurringPayment(ctx, schedule)
}

// hookedSettlement runs before once, ahead of the first charge of a run.
type hookedSettlement struct {
	service.PaymentSettlementService
	before func(ctx context.Context, schedule *recurringschedule.RecurringSchedule)
	once   sync.Once
}

func (h *hookedSettlement) ProcessRecurringPayment(ctx context.Context, schedule *recurringschedule.RecurringSchedule) (*rentpayment.RentPayment, error) {
	h.once.Do(func() { h.before(ctx, schedule) })
	return h.PaymentSettlementService.ProcessRecurringPayment(ctx, schedule)
}

type flakyScheduleRepo struct {
	recurringschedule.Repository
	failures int
	calls    int
}

func (f *flakyScheduleRepo) ListDue(ctx context.Context, day time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ierr.NewError("connection refused").
			WithHint("Failed to list due schedules").
			Mark(ierr.ErrDatabase)
	}
	return f.Repository.ListDue(ctx, day)
}

type stubRunLock struct {
	held     bool
	released int
}

func (l *stubRunLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(context.Context), bool, error) {
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) { l.released++ }, true, nil
}
