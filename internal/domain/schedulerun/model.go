package schedulerun

import (
	"time"

	"github.com/rentpay/rentpay/internal/types"
)

// ScheduleRun is the audit record of one runner invocation.
type ScheduleRun struct {
	// ID is the prefixed ULID of the run
	ID string `db:"id" json:"id"`

	// Trigger is what started the run (cron, manual, single, temporal)
	Trigger types.ScheduleRunTrigger `db:"trigger" json:"trigger"`

	// RunDate is the calendar day the run selected schedules for
	RunDate time.Time `db:"run_date" json:"run_date"`

	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	Status types.ScheduleRunStatus `db:"status" json:"status"`

	Processed int `db:"processed" json:"processed"`
	Succeeded int `db:"succeeded" json:"succeeded"`
	Failed    int `db:"failed" json:"failed"`
	Skipped   int `db:"skipped" json:"skipped"`

	// Error is set when the run aborted before processing every schedule
	Error string `db:"error" json:"error,omitempty"`

	Items []*Item `db:"items" json:"items,omitempty"`

	types.BaseModel
}

// Item is the outcome of one schedule within a run.
type Item struct {
	ScheduleID string                `json:"schedule_id"`
	LeaseID    string                `json:"lease_id"`
	Outcome    types.ScheduleOutcome `json:"outcome"`
	PaymentID  string                `json:"payment_id,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// New starts a run record for day.
func New(trigger types.ScheduleRunTrigger, day time.Time, startedAt time.Time) *ScheduleRun {
	return &ScheduleRun{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SCHEDULE_RUN),
		Trigger:   trigger,
		RunDate:   day,
		StartedAt: startedAt,
		Status:    types.ScheduleRunStatusRunning,
	}
}

// Record appends an item and updates the counters.
func (r *ScheduleRun) Record(item *Item) {
	r.Items = append(r.Items, item)
	r.Processed++
	switch item.Outcome {
	case types.ScheduleOutcomeSucceeded:
		r.Succeeded++
	case types.ScheduleOutcomeFailed:
		r.Failed++
	case types.ScheduleOutcomeSkipped:
		r.Skipped++
	}
}

// Finish closes the run. A non-nil err marks it aborted.
func (r *ScheduleRun) Finish(at time.Time, err error) {
	r.FinishedAt = &at
	r.Status = types.ScheduleRunStatusCompleted
	if err != nil {
		r.Status = types.ScheduleRunStatusAborted
		r.Error = err.Error()
	}
}

// Duration is zero until the run finishes.
func (r *ScheduleRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
