package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/service"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"
)

const runLockKey = "rentpay:recurring_payments:run"

// Status is the runner state reported to operators.
type Status struct {
	IsRunning   bool                     `json:"is_running"`
	IsScheduled bool                     `json:"is_scheduled"`
	Mode        config.SchedulerMode     `json:"mode"`
	CronSpec    string                   `json:"cron_spec,omitempty"`
	LastRun     *schedulerun.ScheduleRun `json:"last_run,omitempty"`
}

// Runner drives due auto-pay schedules through settlement once a day. One
// Runner owns the running flag; at most one run is in progress per Runner, and
// per deployment when a RunLock is configured.
type Runner struct {
	service.ServiceParams
	settlement service.PaymentSettlementService
	methods    service.PaymentMethodService
	runLock    RunLock

	running   atomic.Bool
	scheduled atomic.Bool

	newBackOff func() backoff.BackOff
}

func NewRunner(
	params service.ServiceParams,
	settlement service.PaymentSettlementService,
	methods service.PaymentMethodService,
	runLock RunLock,
) *Runner {
	return &Runner{
		ServiceParams: params,
		settlement:    settlement,
		methods:       methods,
		runLock:       runLock,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// RunDaily processes every schedule due today. A trigger that arrives while a
// run is in progress is refused with ierr.ErrRunInProgress and does not
// disturb the run.
func (r *Runner) RunDaily(ctx context.Context, trigger types.ScheduleRunTrigger) (*schedulerun.ScheduleRun, error) {
	log := r.Logger.WithContext(ctx)

	if !r.running.CompareAndSwap(false, true) {
		log.Warnw("recurring payment run already in progress, skipping", "trigger", trigger)
		return nil, ierr.NewError("run already in progress").
			WithHint("A recurring payment run is already in progress").
			Mark(ierr.ErrRunInProgress)
	}
	defer r.running.Store(false)

	if r.runLock != nil && r.Config.Scheduler.DistributedLock {
		release, acquired, err := r.runLock.Acquire(ctx, runLockKey, r.Config.Scheduler.LockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			log.Warnw("recurring payment run in progress on another instance, skipping", "trigger", trigger)
			return nil, ierr.NewError("run lock held").
				WithHint("A recurring payment run is already in progress").
				Mark(ierr.ErrRunInProgress)
		}
		defer release(context.WithoutCancel(ctx))
	}

	span, ctx := r.Sentry.StartMonitoringSpan(ctx, "scheduler.run_daily", map[string]interface{}{"trigger": trigger})
	if span != nil {
		defer span.Finish()
	}

	today := r.Today()
	run := schedulerun.New(trigger, today, r.Now().UTC())
	run.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := r.ScheduleRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	log.Infow("starting recurring payment run",
		"run_id", run.ID,
		"trigger", trigger,
		"run_date", today.Format(time.DateOnly))

	if _, err := r.methods.MarkExpiredCards(ctx); err != nil {
		log.Warnw("failed to mark expired cards", "error", err)
	}

	schedules, err := r.selectDue(ctx, today)
	if err != nil {
		return r.finish(ctx, run, err)
	}
	log.Infow("selected due schedules", "run_id", run.ID, "count", len(schedules))

	var limiter *rate.Limiter
	if delay := r.Config.Scheduler.InterScheduleDelay; delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	for _, schedule := range schedules {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return r.finish(ctx, run, ierr.WithError(err).
					WithHint("Recurring payment run was cancelled").
					WithReportableDetails(map[string]interface{}{"remaining": len(schedules) - run.Processed}).
					Mark(ierr.ErrSystem))
			}
		}
		run.Record(r.processIsolated(ctx, schedule, today, claimDue))
	}

	r.sendReminders(ctx, today)
	return r.finish(ctx, run, nil)
}

// ProcessNow runs the daily pass immediately on operator request.
func (r *Runner) ProcessNow(ctx context.Context) (*schedulerun.ScheduleRun, error) {
	return r.RunDaily(ctx, types.ScheduleRunTriggerManual)
}

// ProcessSchedule processes one schedule regardless of its due date. The
// period guard still prevents a second charge for the month.
func (r *Runner) ProcessSchedule(ctx context.Context, scheduleID string) (*schedulerun.ScheduleRun, error) {
	schedule, err := r.RecurringScheduleRepo.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.IsActive {
		return nil, ierr.NewError("schedule is not active").
			WithHintf("Recurring schedule %s is not active", scheduleID).
			Mark(ierr.ErrInvalidOperation)
	}

	today := r.Today()
	run := schedulerun.New(types.ScheduleRunTriggerSingle, today, r.Now().UTC())
	run.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := r.ScheduleRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}
	run.Record(r.processIsolated(ctx, schedule, today, claimActive))
	return r.finish(ctx, run, nil)
}

func (r *Runner) Status(ctx context.Context) (*Status, error) {
	last, err := r.ScheduleRunRepo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	status := &Status{
		IsRunning:   r.running.Load(),
		IsScheduled: r.scheduled.Load(),
		Mode:        r.Config.Scheduler.Mode,
		LastRun:     last,
	}
	if r.Config.Scheduler.Mode != config.SchedulerModeTemporal {
		status.CronSpec = r.Config.Scheduler.CronSpec
	}
	return status, nil
}

// IsRunning reports whether a run is in progress in this process.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// SetScheduled records whether a trigger is attached to the runner.
func (r *Runner) SetScheduled(scheduled bool) {
	r.scheduled.Store(scheduled)
}

// selectDue lists today's schedules, retrying database errors.
func (r *Runner) selectDue(ctx context.Context, today time.Time) ([]*recurringschedule.RecurringSchedule, error) {
	var schedules []*recurringschedule.RecurringSchedule
	attempt := 0
	op := func() error {
		attempt++
		var err error
		schedules, err = r.RecurringScheduleRepo.ListDue(ctx, today)
		if err == nil {
			return nil
		}
		if !ierr.IsDatabase(err) {
			return backoff.Permanent(err)
		}
		r.Logger.WithContext(ctx).Warnw("failed to select due schedules, retrying",
			"attempt", attempt,
			"error", err)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.Config.Scheduler.SelectionRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return schedules, nil
}

// claimRule decides whether the stored schedule may still be charged today.
type claimRule func(s *recurringschedule.RecurringSchedule, today time.Time) bool

// claimDue is the daily selection rule, re-checked against the stored row.
func claimDue(s *recurringschedule.RecurringSchedule, today time.Time) bool {
	return s.IsSelectableOn(today)
}

// claimActive only requires the schedule to still be active.
func claimActive(s *recurringschedule.RecurringSchedule, _ time.Time) bool {
	return s.IsActive
}

// processIsolated processes one schedule; a panic is recorded as a failed
// item and the run moves on.
func (r *Runner) processIsolated(ctx context.Context, schedule *recurringschedule.RecurringSchedule, today time.Time, claim claimRule) *schedulerun.Item {
	var item *schedulerun.Item
	var pc panics.Catcher
	pc.Try(func() {
		item = r.processOne(ctx, schedule, today, claim)
	})
	if recovered := pc.Recovered(); recovered != nil {
		r.Logger.WithContext(ctx).Errorw("panic while processing schedule",
			"schedule_id", schedule.ID,
			"panic", recovered.String())
		r.Sentry.CaptureExceptionWithContext(ctx, recovered.AsError(), map[string]string{"schedule_id": schedule.ID})
		item = &schedulerun.Item{
			ScheduleID: schedule.ID,
			LeaseID:    schedule.LeaseID,
			Outcome:    types.ScheduleOutcomeFailed,
			Error:      "internal error",
		}
	}
	return item
}

// processOne charges one schedule. The schedule is re-read under its lock
// before the charge so a cancel or edit made after selection is honoured, and
// the outcome is written back under the same lock touching only the columns a
// run owns.
func (r *Runner) processOne(ctx context.Context, selected *recurringschedule.RecurringSchedule, today time.Time, claim claimRule) *schedulerun.Item {
	log := r.Logger.WithContext(ctx).With("schedule_id", selected.ID, "lease_id", selected.LeaseID)
	item := &schedulerun.Item{ScheduleID: selected.ID, LeaseID: selected.LeaseID}

	schedule, ok, err := r.claim(ctx, selected.ID, today, claim)
	if err != nil {
		item.Outcome = types.ScheduleOutcomeFailed
		item.Error = lo.CoalesceOrEmpty(ierr.GetHint(err), err.Error())
		log.Errorw("failed to load schedule for processing", "error", err)
		return item
	}
	if !ok {
		item.Outcome = types.ScheduleOutcomeSkipped
		item.Error = "schedule is no longer due"
		log.Infow("schedule changed since selection, not charging")
		return item
	}

	payment, err := r.settlement.ProcessRecurringPayment(ctx, schedule)
	if payment != nil {
		item.PaymentID = payment.ID
	}

	var (
		eventType types.DomainEventType
		apply     func(s *recurringschedule.RecurringSchedule)
	)
	switch {
	case err == nil:
		apply = func(s *recurringschedule.RecurringSchedule) { s.RecordSuccess(today) }
		item.Outcome = types.ScheduleOutcomeSucceeded
		eventType = types.EventAutoPaySucceeded
		log.Infow("auto-pay succeeded", "payment_id", item.PaymentID)
	case ierr.IsDuplicatePeriodPayment(err):
		// the tenant already paid this period; align the date, charge nothing
		apply = func(s *recurringschedule.RecurringSchedule) { s.RecordSkip(today) }
		item.Outcome = types.ScheduleOutcomeSkipped
		item.Error = ierr.GetHint(err)
		eventType = types.EventAutoPaySkipped
		log.Infow("auto-pay skipped, period already paid")
	default:
		reason := failureReason(err, payment)
		apply = func(s *recurringschedule.RecurringSchedule) { s.RecordFailure(today, reason) }
		item.Outcome = types.ScheduleOutcomeFailed
		item.Error = reason
		eventType = types.EventAutoPayFailed
		log.Warnw("auto-pay failed", "payment_id", item.PaymentID, "reason", reason, "error", err)
		if !ierr.IsGateway(err) && !ierr.IsValidation(err) && !ierr.IsNotFound(err) {
			r.Sentry.CaptureExceptionWithContext(ctx, err, map[string]string{"schedule_id": schedule.ID})
		}
	}

	recorded, err := r.recordOutcome(ctx, schedule.ID, apply)
	if err != nil {
		log.Errorw("failed to update schedule after processing",
			"outcome", item.Outcome,
			"error", err)
		item.Error = lo.CoalesceOrEmpty(item.Error, err.Error())
		// report what the run computed even though it was not stored
		apply(schedule)
		recorded = schedule
	}

	r.publish(ctx, eventType, recorded, map[string]interface{}{
		"payment_id":     item.PaymentID,
		"outcome":        item.Outcome,
		"failure_reason": recorded.LastFailureReason,
	})
	return item
}

// claim re-reads the schedule under its lock and reports whether rule still
// holds for the stored row.
func (r *Runner) claim(ctx context.Context, id string, today time.Time, rule claimRule) (*recurringschedule.RecurringSchedule, bool, error) {
	var (
		schedule *recurringschedule.RecurringSchedule
		ok       bool
	)
	err := r.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := r.LockSchedule(ctx, id); err != nil {
			return err
		}
		var err error
		schedule, err = r.RecurringScheduleRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		ok = rule(schedule, today)
		return nil
	})
	return schedule, ok, err
}

// recordOutcome applies the run's outcome to the current row and stores the
// run-owned columns. Concurrent cancels and edits are kept.
func (r *Runner) recordOutcome(ctx context.Context, id string, apply func(s *recurringschedule.RecurringSchedule)) (*recurringschedule.RecurringSchedule, error) {
	var schedule *recurringschedule.RecurringSchedule
	err := r.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := r.LockSchedule(ctx, id); err != nil {
			return err
		}
		var err error
		schedule, err = r.RecurringScheduleRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		apply(schedule)
		schedule.Touch(types.WithSystemActor(ctx))
		return r.RecurringScheduleRepo.UpdateRunOutcome(ctx, schedule)
	})
	return schedule, err
}

func (r *Runner) sendReminders(ctx context.Context, today time.Time) {
	due, err := r.RecurringScheduleRepo.ListReminders(ctx, today)
	if err != nil {
		r.Logger.WithContext(ctx).Warnw("failed to list auto-pay reminders", "error", err)
		return
	}
	for _, schedule := range due {
		r.publish(ctx, types.EventAutoPayReminderDue, schedule, map[string]interface{}{
			"reminder_days_before": schedule.ReminderDaysBefore,
		})
	}
	if len(due) > 0 {
		r.Logger.WithContext(ctx).Infow("queued auto-pay reminders", "count", len(due))
	}
}

func (r *Runner) finish(ctx context.Context, run *schedulerun.ScheduleRun, runErr error) (*schedulerun.ScheduleRun, error) {
	log := r.Logger.WithContext(ctx)

	run.Finish(r.Now().UTC(), runErr)
	run.Touch(ctx)
	if err := r.ScheduleRunRepo.Update(ctx, run); err != nil {
		log.Errorw("failed to record schedule run", "run_id", run.ID, "error", err)
	}

	if runErr != nil {
		log.Errorw("recurring payment run aborted",
			"run_id", run.ID,
			"processed", run.Processed,
			"error", runErr)
		r.Sentry.CaptureExceptionWithContext(ctx, runErr, map[string]string{"run_id": run.ID})
		return run, runErr
	}

	log.Infow("recurring payment run completed",
		"run_id", run.ID,
		"trigger", run.Trigger,
		"processed", run.Processed,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"duration", run.Duration())

	if r.EventPublisher != nil {
		event := publisher.NewEvent(ctx, types.EventScheduleRunCompleted)
		event.Data = map[string]interface{}{
			"run_id":    run.ID,
			"trigger":   run.Trigger,
			"run_date":  run.RunDate.Format(time.DateOnly),
			"processed": run.Processed,
			"succeeded": run.Succeeded,
			"failed":    run.Failed,
			"skipped":   run.Skipped,
		}
		if err := r.EventPublisher.Publish(ctx, event); err != nil {
			log.Errorw("failed to publish run summary", "run_id", run.ID, "error", err)
		}
	}
	return run, nil
}

func (r *Runner) publish(ctx context.Context, eventType types.DomainEventType, schedule *recurringschedule.RecurringSchedule, extra map[string]interface{}) {
	if r.EventPublisher == nil {
		return
	}
	event := publisher.NewEvent(ctx, eventType)
	event.TenantID = schedule.TenantID
	event.LeaseID = schedule.LeaseID
	event.ScheduleID = schedule.ID
	event.PaymentID, _ = extra["payment_id"].(string)
	event.Data = lo.Assign(map[string]interface{}{
		"next_payment_date":       schedule.NextPaymentDate.Format(time.DateOnly),
		"failed_payment_attempts": schedule.FailedPaymentAttempts,
		"send_reminder_email":     schedule.SendReminderEmail,
		"send_receipt_email":      schedule.SendReceiptEmail,
	}, extra)

	if err := r.EventPublisher.Publish(ctx, event); err != nil {
		r.Logger.WithContext(ctx).Errorw("failed to publish auto-pay event",
			"schedule_id", schedule.ID,
			"event_type", eventType,
			"error", err)
	}
}

// failureReason prefers the reason stored on the failed payment, then the
// error's hint.
func failureReason(err error, payment *rentpayment.RentPayment) string {
	if payment != nil && payment.FailureReason != "" {
		return payment.FailureReason
	}
	return lo.CoalesceOrEmpty(ierr.GetHint(err), err.Error())
}
