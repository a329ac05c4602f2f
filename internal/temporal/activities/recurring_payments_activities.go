package activities

import (
	"context"

	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/temporal/models"
	"github.com/rentpay/rentpay/internal/types"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

const (
	ActivityRunDaily        = "RunDailyActivity"
	ActivityProcessSchedule = "ProcessScheduleActivity"
)

// DailyRunner is the part of the scheduler the activities drive.
type DailyRunner interface {
	RunDaily(ctx context.Context, trigger types.ScheduleRunTrigger) (*schedulerun.ScheduleRun, error)
	ProcessSchedule(ctx context.Context, scheduleID string) (*schedulerun.ScheduleRun, error)
}

// RecurringPaymentActivities registers as "RunDailyActivity" and
// "ProcessScheduleActivity".
type RecurringPaymentActivities struct {
	runner DailyRunner
}

func NewRecurringPaymentActivities(runner DailyRunner) *RecurringPaymentActivities {
	return &RecurringPaymentActivities{runner: runner}
}

// RunDailyActivity runs the daily pass with trigger temporal. A run already in
// progress is reported in the result. Failures are not retried; the run has
// already recorded every schedule it reached.
func (a *RecurringPaymentActivities) RunDailyActivity(ctx context.Context, input models.RunDailyActivityInput) (*models.RecurringPaymentsWorkflowResult, error) {
	logger := activity.GetLogger(ctx)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx = types.SetRequestID(types.WithSystemActor(ctx), input.RequestID)
	run, err := a.runner.RunDaily(ctx, types.ScheduleRunTriggerTemporal)
	if ierr.IsRunInProgress(err) {
		logger.Warn("Recurring payment run already in progress", "request_id", input.RequestID)
		return &models.RecurringPaymentsWorkflowResult{AlreadyRunning: true}, nil
	}
	if err != nil {
		logger.Error("Recurring payment run failed", "request_id", input.RequestID, "error", err)
		return nil, temporal.NewNonRetryableApplicationError(ierr.GetHint(err), "RecurringPaymentRunFailed", err)
	}
	return toResult(run), nil
}

// ProcessScheduleActivity processes a single schedule.
func (a *RecurringPaymentActivities) ProcessScheduleActivity(ctx context.Context, input models.ProcessScheduleWorkflowInput) (*models.RecurringPaymentsWorkflowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx = types.WithSystemActor(ctx)
	if input.RequestID != "" {
		ctx = types.SetRequestID(ctx, input.RequestID)
	}
	run, err := a.runner.ProcessSchedule(ctx, input.ScheduleID)
	if err != nil {
		if ierr.IsNotFound(err) || ierr.IsInvalidOperation(err) {
			return nil, temporal.NewNonRetryableApplicationError(ierr.GetHint(err), "InvalidSchedule", err)
		}
		return nil, err
	}
	return toResult(run), nil
}

func toResult(run *schedulerun.ScheduleRun) *models.RecurringPaymentsWorkflowResult {
	return &models.RecurringPaymentsWorkflowResult{
		RunID:     run.ID,
		Status:    run.Status,
		Processed: run.Processed,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Skipped:   run.Skipped,
	}
}
