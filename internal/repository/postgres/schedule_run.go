package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/types"
	"gorm.io/gorm"
)

type scheduleRunRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewScheduleRunRepository(client *postgres.Client, log *logger.Logger) schedulerun.Repository {
	return &scheduleRunRepository{client: client, log: log}
}

func (r *scheduleRunRepository) Create(ctx context.Context, run *schedulerun.ScheduleRun) error {
	row, err := scheduleRunRowOf(run)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	if err := r.client.Querier(ctx).Create(row).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record schedule run").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *scheduleRunRepository) Update(ctx context.Context, run *schedulerun.ScheduleRun) error {
	row, err := scheduleRunRowOf(run)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	res := r.client.Querier(ctx).Model(&scheduleRunRow{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"finished_at": row.FinishedAt,
		"status":      row.Status,
		"processed":   row.Processed,
		"succeeded":   row.Succeeded,
		"failed":      row.Failed,
		"skipped":     row.Skipped,
		"error":       row.Error,
		"items":       row.Items,
		"updated_at":  row.UpdatedAt,
		"updated_by":  row.UpdatedBy,
	})
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update schedule run").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("schedule run not found").
			WithHintf("Schedule run %s not found", run.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *scheduleRunRepository) Get(ctx context.Context, id string) (*schedulerun.ScheduleRun, error) {
	var row scheduleRunRow
	if err := r.client.Querier(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Schedule run %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get schedule run").
			Mark(ierr.ErrDatabase)
	}
	return r.toDomain(&row)
}

func (r *scheduleRunRepository) GetLatest(ctx context.Context) (*schedulerun.ScheduleRun, error) {
	var rows []scheduleRunRow
	if err := r.client.Querier(ctx).Order("started_at DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get latest schedule run").
			Mark(ierr.ErrDatabase)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.toDomain(&rows[0])
}

func (r *scheduleRunRepository) List(ctx context.Context, filter *types.ScheduleRunFilter) ([]*schedulerun.ScheduleRun, error) {
	if filter == nil {
		filter = types.NewScheduleRunFilter()
	}
	q := r.client.Querier(ctx)
	if filter.Trigger != "" {
		q = q.Where("trigger = ?", filter.Trigger)
	}

	var rows []scheduleRunRow
	if err := q.Order("started_at DESC").Scopes(paginate(filter.QueryFilter)).Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list schedule runs").
			Mark(ierr.ErrDatabase)
	}

	out := make([]*schedulerun.ScheduleRun, 0, len(rows))
	for i := range rows {
		run, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (r *scheduleRunRepository) toDomain(row *scheduleRunRow) (*schedulerun.ScheduleRun, error) {
	run, err := row.toDomain(r.client.Location())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read schedule run").
			Mark(ierr.ErrDatabase)
	}
	return run, nil
}
