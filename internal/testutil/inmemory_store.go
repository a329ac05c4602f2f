package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/rentpay/rentpay/internal/errors"
)

// pager is satisfied by every list filter through its embedded QueryFilter.
type pager interface {
	GetLimit() int
	GetOffset() int
}

// InMemoryStore is a generic map-backed store shared by the typed in-memory
// repositories.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(id, item)
}

func (s *InMemoryStore[T]) createLocked(id string, item T) error {
	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithHintf("An item with id %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, item)
}

func (s *InMemoryStore[T]) updateLocked(id string, item T) error {
	if _, ok := s.items[id]; !ok {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// List returns the items accepted by filterFn ordered by sortFn, paged by the
// filter's limit and offset when it has them.
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn func(context.Context, T, interface{}) bool, sortFn func(i, j T) bool) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.selectLocked(ctx, filter, filterFn, sortFn), filter), nil
}

// Count returns the number of items accepted by filterFn, ignoring paging.
func (s *InMemoryStore[T]) Count(ctx context.Context, filter interface{}, filterFn func(context.Context, T, interface{}) bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selectLocked(ctx, filter, filterFn, nil)), nil
}

func (s *InMemoryStore[T]) selectLocked(ctx context.Context, filter interface{}, filterFn func(context.Context, T, interface{}) bool, sortFn func(i, j T) bool) []T {
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			out = append(out, item)
		}
	}
	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}
	return out
}

// Atomic runs fn while holding the write lock. fn receives the raw map and
// must not call other store methods.
func (s *InMemoryStore[T]) Atomic(fn func(items map[string]T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.items)
}

// Clear removes everything.
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

func page[T any](items []T, filter interface{}) []T {
	p, ok := filter.(pager)
	if !ok {
		return items
	}
	offset, limit := p.GetOffset(), p.GetLimit()
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
