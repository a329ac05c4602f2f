package testutil

import (
	"context"

	"github.com/rentpay/rentpay/internal/domain/lease"
	ierr "github.com/rentpay/rentpay/internal/errors"
)

// InMemoryLeaseStore implements lease.Repository
type InMemoryLeaseStore struct {
	*InMemoryStore[*lease.Lease]
}

func NewInMemoryLeaseStore() *InMemoryLeaseStore {
	return &InMemoryLeaseStore{InMemoryStore: NewInMemoryStore[*lease.Lease]()}
}

func copyLease(l *lease.Lease) *lease.Lease {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func (s *InMemoryLeaseStore) Create(ctx context.Context, l *lease.Lease) error {
	if l == nil {
		return ierr.NewError("lease is nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, l.ID, copyLease(l)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create lease").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryLeaseStore) Get(ctx context.Context, id string) (*lease.Lease, error) {
	l, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Lease %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyLease(l), nil
}

func (s *InMemoryLeaseStore) Update(ctx context.Context, l *lease.Lease) error {
	if l == nil {
		return ierr.NewError("lease is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, l.ID, copyLease(l))
}
