package types

import ierr "github.com/rentpay/rentpay/internal/errors"

type RecurringScheduleType string

const (
	RecurringScheduleTypeMonthly RecurringScheduleType = "monthly"
	RecurringScheduleTypeCustom  RecurringScheduleType = "custom"
)

func (t RecurringScheduleType) Validate() error {
	switch t {
	case RecurringScheduleTypeMonthly, RecurringScheduleTypeCustom:
		return nil
	}
	return ierr.NewError("invalid schedule type").
		WithHint("Schedule type must be one of: monthly, custom").
		Mark(ierr.ErrValidation)
}

const (
	DefaultReminderDaysBefore = 3
	MaxReminderDaysBefore     = 28
)

// ScheduleRunTrigger records what started a runner invocation.
type ScheduleRunTrigger string

const (
	ScheduleRunTriggerCron     ScheduleRunTrigger = "cron"
	ScheduleRunTriggerManual   ScheduleRunTrigger = "manual"
	ScheduleRunTriggerSingle   ScheduleRunTrigger = "single"
	ScheduleRunTriggerTemporal ScheduleRunTrigger = "temporal"
)

// ScheduleRunStatus is the terminal state of a runner invocation.
type ScheduleRunStatus string

const (
	ScheduleRunStatusRunning   ScheduleRunStatus = "running"
	ScheduleRunStatusCompleted ScheduleRunStatus = "completed"
	ScheduleRunStatusAborted   ScheduleRunStatus = "aborted"
)

// ScheduleOutcome is the result of processing one schedule in a run.
type ScheduleOutcome string

const (
	ScheduleOutcomeSucceeded ScheduleOutcome = "succeeded"
	ScheduleOutcomeFailed    ScheduleOutcome = "failed"
	ScheduleOutcomeSkipped   ScheduleOutcome = "skipped"
)
