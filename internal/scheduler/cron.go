package scheduler

import (
	"context"

	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/robfig/cron/v3"
)

// CronTrigger fires the daily run in-process on a six-field cron spec.
type CronTrigger struct {
	cron   *cron.Cron
	runner *Runner
	spec   string
	logger *logger.Logger
}

func NewCronTrigger(cfg *config.Configuration, runner *Runner, log *logger.Logger) (*CronTrigger, error) {
	loc, err := types.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}

	cronLogger := log.GetCronLogger()
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &CronTrigger{cron: c, runner: runner, spec: cfg.Scheduler.CronSpec, logger: log}, nil
}

func (t *CronTrigger) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.fire); err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid scheduler cron spec %q", t.spec).
			Mark(ierr.ErrValidation)
	}
	t.cron.Start()
	t.runner.SetScheduled(true)
	t.logger.Infow("recurring payment cron started", "spec", t.spec)
	return nil
}

// Stop stops new firings and waits for a running job until ctx ends.
func (t *CronTrigger) Stop(ctx context.Context) error {
	t.runner.SetScheduled(false)
	select {
	case <-t.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *CronTrigger) fire() {
	ctx := types.SetRequestID(types.WithSystemActor(context.Background()), types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	if _, err := t.runner.RunDaily(ctx, types.ScheduleRunTriggerCron); err != nil && !ierr.IsRunInProgress(err) {
		t.logger.Errorw("scheduled recurring payment run failed", "error", err)
	}
}
