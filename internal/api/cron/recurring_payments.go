package cron

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/scheduler"
	temporalservice "github.com/rentpay/rentpay/internal/temporal/service"
)

// Runner is the part of the recurring payment runner the cron endpoints drive.
type Runner interface {
	ProcessNow(ctx context.Context) (*schedulerun.ScheduleRun, error)
	ProcessSchedule(ctx context.Context, scheduleID string) (*schedulerun.ScheduleRun, error)
	Status(ctx context.Context) (*scheduler.Status, error)
}

// RecurringPaymentsCronHandler lets operators trigger and inspect auto-pay runs
type RecurringPaymentsCronHandler struct {
	runner   Runner
	temporal temporalservice.TemporalService
	logger   *logger.Logger
}

// NewRecurringPaymentsCronHandler creates the handler. temporal may be nil, in
// which case single schedules are processed in-process.
func NewRecurringPaymentsCronHandler(
	runner Runner,
	temporal temporalservice.TemporalService,
	logger *logger.Logger,
) *RecurringPaymentsCronHandler {
	return &RecurringPaymentsCronHandler{
		runner:   runner,
		temporal: temporal,
		logger:   logger,
	}
}

// Run processes every schedule due today and returns the run summary.
func (h *RecurringPaymentsCronHandler) Run(c *gin.Context) {
	// a dropped connection must not abort a run halfway
	ctx := context.WithoutCancel(c.Request.Context())
	h.logger.WithContext(ctx).Infow("starting recurring payments run on request")

	run, err := h.runner.ProcessNow(ctx)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.WithContext(ctx).Infow("completed recurring payments run on request",
		"run_id", run.ID,
		"processed", run.Processed,
		"failed", run.Failed,
	)
	c.JSON(http.StatusOK, run)
}

// ProcessSchedule charges one schedule now.
func (h *RecurringPaymentsCronHandler) ProcessSchedule(c *gin.Context) {
	scheduleID := c.Param("id")
	ctx := context.WithoutCancel(c.Request.Context())

	if h.temporal != nil {
		workflowID, err := h.temporal.StartProcessSchedule(ctx, scheduleID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"schedule_id": scheduleID, "workflow_id": workflowID})
		return
	}

	run, err := h.runner.ProcessSchedule(ctx, scheduleID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RecurringPaymentsCronHandler) Status(c *gin.Context) {
	status, err := h.runner.Status(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}
