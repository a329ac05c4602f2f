package testutil

import (
	"context"

	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// InMemoryScheduleRunStore implements schedulerun.Repository
type InMemoryScheduleRunStore struct {
	*InMemoryStore[*schedulerun.ScheduleRun]
}

func NewInMemoryScheduleRunStore() *InMemoryScheduleRunStore {
	return &InMemoryScheduleRunStore{InMemoryStore: NewInMemoryStore[*schedulerun.ScheduleRun]()}
}

func copyScheduleRun(r *schedulerun.ScheduleRun) *schedulerun.ScheduleRun {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = lo.Map(r.Items, func(item *schedulerun.Item, _ int) *schedulerun.Item {
		ic := *item
		return &ic
	})
	if r.FinishedAt != nil {
		c.FinishedAt = lo.ToPtr(*r.FinishedAt)
	}
	return &c
}

func (s *InMemoryScheduleRunStore) Create(ctx context.Context, run *schedulerun.ScheduleRun) error {
	if run == nil {
		return ierr.NewError("schedule run is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, run.ID, copyScheduleRun(run))
}

func (s *InMemoryScheduleRunStore) Update(ctx context.Context, run *schedulerun.ScheduleRun) error {
	if run == nil {
		return ierr.NewError("schedule run is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, run.ID, copyScheduleRun(run))
}

func (s *InMemoryScheduleRunStore) Get(ctx context.Context, id string) (*schedulerun.ScheduleRun, error) {
	run, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Schedule run %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyScheduleRun(run), nil
}

func scheduleRunFilterFn(_ context.Context, run *schedulerun.ScheduleRun, filter interface{}) bool {
	f, ok := filter.(*types.ScheduleRunFilter)
	if !ok || f == nil || f.Trigger == "" {
		return true
	}
	return run.Trigger == f.Trigger
}

func scheduleRunSortFn(i, j *schedulerun.ScheduleRun) bool {
	return i.StartedAt.After(j.StartedAt)
}

func (s *InMemoryScheduleRunStore) List(ctx context.Context, filter *types.ScheduleRunFilter) ([]*schedulerun.ScheduleRun, error) {
	if filter == nil {
		filter = types.NewScheduleRunFilter()
	}
	runs, err := s.InMemoryStore.List(ctx, filter, scheduleRunFilterFn, scheduleRunSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(runs, func(r *schedulerun.ScheduleRun, _ int) *schedulerun.ScheduleRun { return copyScheduleRun(r) }), nil
}

func (s *InMemoryScheduleRunStore) GetLatest(ctx context.Context) (*schedulerun.ScheduleRun, error) {
	runs, err := s.InMemoryStore.List(ctx, nil, nil, scheduleRunSortFn)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return copyScheduleRun(runs[0]), nil
}
