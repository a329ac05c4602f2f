package workflows

import (
	"time"

	"github.com/rentpay/rentpay/internal/temporal/activities"
	"github.com/rentpay/rentpay/internal/temporal/models"
	"github.com/rentpay/rentpay/internal/types"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// Workflow names - must match the function names
	WorkflowRecurringPayments = "RecurringPaymentsWorkflow"
	WorkflowProcessSchedule   = "ProcessRecurringScheduleWorkflow"
)

// RecurringPaymentsWorkflow is started on a Temporal cron schedule and runs
// the daily recurring payment pass once per firing.
func RecurringPaymentsWorkflow(ctx workflow.Context, input models.RecurringPaymentsWorkflowInput) (*models.RecurringPaymentsWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	requestID := input.RequestID
	if requestID == "" {
		// side effect so replays see the same id
		encoded := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
			return types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
		})
		if err := encoded.Get(&requestID); err != nil {
			return nil, err
		}
	}

	ao := workflow.ActivityOptions{
		// sized for a full day's schedules with the inter-schedule delay
		StartToCloseTimeout: 6 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger.Info("Starting recurring payments workflow", "request_id", requestID)

	var result models.RecurringPaymentsWorkflowResult
	err := workflow.ExecuteActivity(ctx, activities.ActivityRunDaily, models.RunDailyActivityInput{
		RequestID: requestID,
	}).Get(ctx, &result)
	if err != nil {
		logger.Error("Recurring payments workflow failed", "request_id", requestID, "error", err)
		return nil, err
	}

	logger.Info("Recurring payments workflow completed",
		"run_id", result.RunID,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"already_running", result.AlreadyRunning)
	return &result, nil
}

// ProcessRecurringScheduleWorkflow processes one schedule on operator request.
func ProcessRecurringScheduleWorkflow(ctx workflow.Context, input models.ProcessScheduleWorkflowInput) (*models.RecurringPaymentsWorkflowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var result models.RecurringPaymentsWorkflowResult
	if err := workflow.ExecuteActivity(ctx, activities.ActivityProcessSchedule, input).Get(ctx, &result); err != nil {
		workflow.GetLogger(ctx).Error("Failed to process recurring schedule", "schedule_id", input.ScheduleID, "error", err)
		return nil, err
	}
	return &result, nil
}
