package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/temporal/activities"
	"github.com/rentpay/rentpay/internal/temporal/models"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

type fakeRunner struct {
	run        *schedulerun.ScheduleRun
	err        error
	triggers   []types.ScheduleRunTrigger
	requestIDs []string
	scheduleID string
}

func (f *fakeRunner) RunDaily(ctx context.Context, trigger types.ScheduleRunTrigger) (*schedulerun.ScheduleRun, error) {
	f.triggers = append(f.triggers, trigger)
	f.requestIDs = append(f.requestIDs, types.GetRequestID(ctx))
	return f.run, f.err
}

func (f *fakeRunner) ProcessSchedule(_ context.Context, scheduleID string) (*schedulerun.ScheduleRun, error) {
	f.scheduleID = scheduleID
	return f.run, f.err
}

type RecurringPaymentsWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env    *testsuite.TestWorkflowEnvironment
	runner *fakeRunner
}

func TestRecurringPaymentsWorkflow(t *testing.T) {
	suite.Run(t, new(RecurringPaymentsWorkflowSuite))
}

func (s *RecurringPaymentsWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.runner = &fakeRunner{}
	acts := activities.NewRecurringPaymentActivities(s.runner)
	s.env.RegisterWorkflowWithOptions(RecurringPaymentsWorkflow, workflow.RegisterOptions{Name: WorkflowRecurringPayments})
	s.env.RegisterWorkflowWithOptions(ProcessRecurringScheduleWorkflow, workflow.RegisterOptions{Name: WorkflowProcessSchedule})
	s.env.RegisterActivity(acts)
}

func (s *RecurringPaymentsWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func finishedRun() *schedulerun.ScheduleRun {
	run := schedulerun.New(types.ScheduleRunTriggerTemporal, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), time.Now())
	run.Record(&schedulerun.Item{ScheduleID: "rsch_1", Outcome: types.ScheduleOutcomeSucceeded})
	run.Record(&schedulerun.Item{ScheduleID: "rsch_2", Outcome: types.ScheduleOutcomeFailed})
	run.Record(&schedulerun.Item{ScheduleID: "rsch_3", Outcome: types.ScheduleOutcomeSkipped})
	run.Finish(time.Now(), nil)
	return run
}

func (s *RecurringPaymentsWorkflowSuite) TestRunsDailyPass() {
	s.runner.run = finishedRun()

	s.env.ExecuteWorkflow(WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{RequestID: "req_cron"})

	s.True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result models.RecurringPaymentsWorkflowResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(s.runner.run.ID, result.RunID)
	s.Equal(3, result.Processed)
	s.Equal(1, result.Succeeded)
	s.Equal(1, result.Failed)
	s.Equal(1, result.Skipped)
	s.Equal(types.ScheduleRunStatusCompleted, result.Status)

	s.Equal([]types.ScheduleRunTrigger{types.ScheduleRunTriggerTemporal}, s.runner.triggers)
	s.Equal([]string{"req_cron"}, s.runner.requestIDs)
}

func (s *RecurringPaymentsWorkflowSuite) TestGeneratesRequestID() {
	s.runner.run = finishedRun()

	s.env.ExecuteWorkflow(WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{})

	s.Require().NoError(s.env.GetWorkflowError())
	s.Require().Len(s.runner.requestIDs, 1)
	s.Contains(s.runner.requestIDs[0], types.UUID_PREFIX_REQUEST+"_")
}

func (s *RecurringPaymentsWorkflowSuite) TestAlreadyRunningIsNotAFailure() {
	s.runner.err = ierr.NewError("run already in progress").Mark(ierr.ErrRunInProgress)

	s.env.ExecuteWorkflow(WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{RequestID: "req_1"})

	s.Require().NoError(s.env.GetWorkflowError())
	var result models.RecurringPaymentsWorkflowResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.True(result.AlreadyRunning)
	s.Len(s.runner.triggers, 1)
}

func (s *RecurringPaymentsWorkflowSuite) TestRunFailureIsNotRetried() {
	s.runner.err = ierr.NewError("selection failed").
		WithHint("Failed to list due schedules").
		Mark(ierr.ErrDatabase)

	s.env.ExecuteWorkflow(WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{RequestID: "req_1"})

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.Len(s.runner.triggers, 1)
}

func (s *RecurringPaymentsWorkflowSuite) TestActivityMocked() {
	s.env.OnActivity(activities.ActivityRunDaily, mock.Anything, models.RunDailyActivityInput{RequestID: "req_mock"}).
		Return(&models.RecurringPaymentsWorkflowResult{RunID: "srun_mock", Processed: 2, Succeeded: 2}, nil).
		Once()

	s.env.ExecuteWorkflow(WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{RequestID: "req_mock"})

	s.Require().NoError(s.env.GetWorkflowError())
	var result models.RecurringPaymentsWorkflowResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal("srun_mock", result.RunID)
	s.Empty(s.runner.triggers)
}

func (s *RecurringPaymentsWorkflowSuite) TestProcessSchedule() {
	s.runner.run = schedulerun.New(types.ScheduleRunTriggerSingle, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), time.Now())
	s.runner.run.Record(&schedulerun.Item{ScheduleID: "rsch_1", Outcome: types.ScheduleOutcomeSucceeded})

	s.env.ExecuteWorkflow(WorkflowProcessSchedule, models.ProcessScheduleWorkflowInput{ScheduleID: "rsch_1"})

	s.Require().NoError(s.env.GetWorkflowError())
	s.Equal("rsch_1", s.runner.scheduleID)
	var result models.RecurringPaymentsWorkflowResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(1, result.Succeeded)
}

func (s *RecurringPaymentsWorkflowSuite) TestProcessSchedule_RequiresID() {
	s.env.ExecuteWorkflow(WorkflowProcessSchedule, models.ProcessScheduleWorkflowInput{})

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.Empty(s.runner.scheduleID)
}

func (s *RecurringPaymentsWorkflowSuite) TestProcessSchedule_MissingScheduleNotRetried() {
	s.runner.err = ierr.NewError("schedule not found").
		WithHint("Recurring schedule rsch_missing not found").
		Mark(ierr.ErrNotFound)
	calls := 0
	s.env.SetOnActivityStartedListener(func(*activity.Info, context.Context, converter.EncodedValues) { calls++ })

	s.env.ExecuteWorkflow(WorkflowProcessSchedule, models.ProcessScheduleWorkflowInput{ScheduleID: "rsch_missing"})

	s.Error(s.env.GetWorkflowError())
	s.Equal(1, calls)
}
