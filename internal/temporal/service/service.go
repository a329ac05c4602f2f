package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/temporal/activities"
	temporalInterceptor "github.com/rentpay/rentpay/internal/temporal/interceptor"
	"github.com/rentpay/rentpay/internal/temporal/models"
	"github.com/rentpay/rentpay/internal/temporal/workflows"
	"github.com/rentpay/rentpay/internal/types"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// TemporalService runs the recurring payment worker and owns the cron
// workflow that triggers the daily run.
type TemporalService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// StartProcessSchedule starts a one-off workflow for a schedule and returns
	// its workflow id.
	StartProcessSchedule(ctx context.Context, scheduleID string) (string, error)
}

// Scheduled is told whether the cron workflow is in place.
type Scheduled interface {
	SetScheduled(scheduled bool)
}

type temporalService struct {
	cfg        *config.Configuration
	logger     *logger.Logger
	sentry     *sentry.Service
	activities *activities.RecurringPaymentActivities
	scheduled  Scheduled

	client client.Client
	worker worker.Worker
}

func NewTemporalService(
	cfg *config.Configuration,
	log *logger.Logger,
	sentryService *sentry.Service,
	runner activities.DailyRunner,
	scheduled Scheduled,
) TemporalService {
	return &temporalService{
		cfg:        cfg,
		logger:     log,
		sentry:     sentryService,
		activities: activities.NewRecurringPaymentActivities(runner),
		scheduled:  scheduled,
	}
}

func (s *temporalService) Start(ctx context.Context) error {
	if err := s.cfg.Temporal.TaskQueue.Validate(); err != nil {
		return err
	}

	c, err := client.DialContext(ctx, client.Options{
		HostPort:  s.cfg.Temporal.Address,
		Namespace: s.cfg.Temporal.Namespace,
		Logger:    s.logger.GetTemporalLogger(),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to connect to Temporal at %s", s.cfg.Temporal.Address).
			Mark(ierr.ErrSystem)
	}
	s.client = c

	s.worker = worker.New(c, s.cfg.Temporal.TaskQueue.String(), worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{temporalInterceptor.NewSentryInterceptor(s.sentry)},
	})
	Register(s.worker, s.activities)

	if err := s.worker.Start(); err != nil {
		c.Close()
		return ierr.WithError(err).
			WithHint("Failed to start Temporal worker").
			Mark(ierr.ErrSystem)
	}

	if err := s.ensureCronWorkflow(ctx); err != nil {
		s.worker.Stop()
		c.Close()
		return err
	}
	s.scheduled.SetScheduled(true)

	s.logger.Infow("temporal worker started",
		"task_queue", s.cfg.Temporal.TaskQueue,
		"cron_schedule", s.cronSchedule())
	return nil
}

func (s *temporalService) Stop(ctx context.Context) error {
	s.scheduled.SetScheduled(false)
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.client != nil {
		s.client.Close()
	}
	s.logger.Info("temporal worker stopped")
	return nil
}

func (s *temporalService) StartProcessSchedule(ctx context.Context, scheduleID string) (string, error) {
	if s.client == nil {
		return "", ierr.NewError("temporal client not started").
			WithHint("Temporal is not available").
			Mark(ierr.ErrSystem)
	}

	input := models.ProcessScheduleWorkflowInput{
		ScheduleID: scheduleID,
		RequestID:  types.GetRequestID(ctx),
	}
	if err := input.Validate(); err != nil {
		return "", err
	}

	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        types.TemporalProcessScheduleWorkflow.WorkflowID(scheduleID),
		TaskQueue: s.cfg.Temporal.TaskQueue.String(),
		// one in-flight workflow per schedule
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.WorkflowProcessSchedule, input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return "", ierr.WithError(err).
				WithHintf("Recurring schedule %s is already being processed", scheduleID).
				Mark(ierr.ErrAlreadyExists)
		}
		return "", ierr.WithError(err).
			WithHint("Failed to start schedule processing workflow").
			Mark(ierr.ErrSystem)
	}
	return run.GetID(), nil
}

// ensureCronWorkflow starts the cron workflow unless it is already running.
func (s *temporalService) ensureCronWorkflow(ctx context.Context) error {
	_, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       types.TemporalRecurringPaymentsWorkflow.WorkflowID(""),
		TaskQueue:                                s.cfg.Temporal.TaskQueue.String(),
		CronSchedule:                             s.cronSchedule(),
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.WorkflowRecurringPayments, models.RecurringPaymentsWorkflowInput{})
	if err == nil {
		return nil
	}

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		s.logger.Debugw("recurring payments cron workflow already running", "run_id", started.RunId)
		return nil
	}
	return ierr.WithError(err).
		WithHint("Failed to start recurring payments cron workflow").
		Mark(ierr.ErrSystem)
}

func (s *temporalService) cronSchedule() string {
	if tz := s.cfg.Scheduler.Timezone; tz != "" {
		return fmt.Sprintf("CRON_TZ=%s %s", types.ResolveTimezone(tz), s.cfg.Temporal.CronSchedule)
	}
	return s.cfg.Temporal.CronSchedule
}

// Register adds the recurring payment workflows and activities to w.
func Register(w worker.Registry, acts *activities.RecurringPaymentActivities) {
	w.RegisterWorkflowWithOptions(workflows.RecurringPaymentsWorkflow, workflow.RegisterOptions{Name: workflows.WorkflowRecurringPayments})
	w.RegisterWorkflowWithOptions(workflows.ProcessRecurringScheduleWorkflow, workflow.RegisterOptions{Name: workflows.WorkflowProcessSchedule})
	w.RegisterActivity(acts)
}
