package types

import (
	"fmt"
	"strings"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/samber/lo"
)

// TemporalTaskQueue represents a logical grouping of workflows and activities
type TemporalTaskQueue string

const (
	TemporalTaskQueueRecurringPayments TemporalTaskQueue = "recurring-payments"
)

// String returns the string representation of the task queue
func (tq TemporalTaskQueue) String() string {
	return string(tq)
}

// Validate validates the task queue
func (tq TemporalTaskQueue) Validate() error {
	allowedQueues := []TemporalTaskQueue{
		TemporalTaskQueueRecurringPayments,
	}
	if lo.Contains(allowedQueues, tq) {
		return nil
	}
	return ierr.NewError("invalid task queue").
		WithHint(fmt.Sprintf("Task queue must be one of: %s", strings.Join(lo.Map(allowedQueues, func(tq TemporalTaskQueue, _ int) string { return string(tq) }), ", "))).
		Mark(ierr.ErrValidation)
}

// TemporalWorkflowType represents the type of workflow
type TemporalWorkflowType string

const (
	TemporalRecurringPaymentsWorkflow TemporalWorkflowType = "RecurringPaymentsWorkflow"
	TemporalProcessScheduleWorkflow   TemporalWorkflowType = "ProcessRecurringScheduleWorkflow"
)

func (w TemporalWorkflowType) String() string {
	return string(w)
}

// WorkflowID returns the fixed workflow id used for the cron-started daily run
// so that a second start is rejected by Temporal instead of running twice.
func (w TemporalWorkflowType) WorkflowID(suffix string) string {
	if suffix == "" {
		return strings.ToLower(string(w))
	}
	return fmt.Sprintf("%s-%s", strings.ToLower(string(w)), suffix)
}
