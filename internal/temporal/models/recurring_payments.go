package models

import (
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

// RecurringPaymentsWorkflowInput starts one daily run.
type RecurringPaymentsWorkflowInput struct {
	// RequestID is propagated to the activity for log correlation. Generated
	// per run when empty.
	RequestID string `json:"request_id,omitempty"`
}

func (i *RecurringPaymentsWorkflowInput) Validate() error {
	return nil
}

// RunDailyActivityInput is passed from the workflow to the activity.
type RunDailyActivityInput struct {
	RequestID string `json:"request_id"`
}

func (i *RunDailyActivityInput) Validate() error {
	if i.RequestID == "" {
		return ierr.NewError("request_id is required").
			WithHint("Request ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RecurringPaymentsWorkflowResult mirrors the persisted schedule run.
type RecurringPaymentsWorkflowResult struct {
	RunID     string                  `json:"run_id"`
	Status    types.ScheduleRunStatus `json:"status"`
	Processed int                     `json:"processed"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Skipped   int                     `json:"skipped"`
	// Skipped because another run held the guard.
	AlreadyRunning bool `json:"already_running,omitempty"`
}

// ProcessScheduleWorkflowInput processes one schedule outside the daily run.
type ProcessScheduleWorkflowInput struct {
	ScheduleID string `json:"schedule_id"`
	RequestID  string `json:"request_id,omitempty"`
}

func (i *ProcessScheduleWorkflowInput) Validate() error {
	if i.ScheduleID == "" {
		return ierr.NewError("schedule_id is required").
			WithHint("Recurring schedule ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
