package scheduler

import (
	"context"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/types"
)

func (s *RunnerSuite) TestCronTrigger_StartStop() {
	trigger, err := NewCronTrigger(s.GetConfig(), s.runner, s.GetLogger())
	s.Require().NoError(err)

	s.Require().NoError(trigger.Start())
	s.True(s.runner.scheduled.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(trigger.Stop(ctx))
	s.False(s.runner.scheduled.Load())
}

func (s *RunnerSuite) TestCronTrigger_InvalidSpec() {
	s.GetConfig().Scheduler.CronSpec = "0 2 * * *" // five fields
	trigger, err := NewCronTrigger(s.GetConfig(), s.runner, s.GetLogger())
	s.Require().NoError(err)
	s.True(ierr.IsValidation(trigger.Start()))
	s.False(s.runner.scheduled.Load())
}

func (s *RunnerSuite) TestCronTrigger_UnknownTimezone() {
	s.GetConfig().Scheduler.Timezone = "Mars/Olympus"
	_, err := NewCronTrigger(s.GetConfig(), s.runner, s.GetLogger())
	s.True(ierr.IsValidation(err))
}

func (s *RunnerSuite) TestCronTrigger_FireRunsAsSystem() {
	s.dueSchedule(s.testData.lease, s.testData.method.ID)
	s.SetToday(2025, time.July, 1)
	trigger, err := NewCronTrigger(s.GetConfig(), s.newRunner(service.NewPaymentSettlementService(s.params), nil), s.GetLogger())
	s.Require().NoError(err)

	trigger.fire()

	runs, err := s.GetStores().ScheduleRunRepo.List(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(types.ScheduleRunTriggerCron, runs[0].Trigger)
	s.Equal(1, runs[0].Succeeded)

	payments, err := s.GetStores().RentPaymentRepo.List(s.GetContext(), s.leasePayments())
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Equal(types.DefaultUserID, payments[0].CreatedBy)
}
