package testutil

import (
	"context"
	"sync"

	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*publisher.Event
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, event *publisher.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Events() []*publisher.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*publisher.Event(nil), p.events...)
}

func (p *RecordingPublisher) EventsOfType(t types.DomainEventType) []*publisher.Event {
	return lo.Filter(p.Events(), func(e *publisher.Event, _ int) bool { return e.Type == t })
}

func (p *RecordingPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
