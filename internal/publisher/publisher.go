package publisher

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/pubsub"
	"github.com/rentpay/rentpay/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is a domain event. Notification delivery (reminder and receipt emails)
// consumes these downstream; publishing only records the intent.
type Event struct {
	ID         string                 `json:"id"`
	Type       types.DomainEventType  `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	TenantID   string                 `json:"tenant_id,omitempty"`
	LeaseID    string                 `json:"lease_id,omitempty"`
	PaymentID  string                 `json:"payment_id,omitempty"`
	ScheduleID string                 `json:"schedule_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent stamps id, time and request id.
func NewEvent(ctx context.Context, eventType types.DomainEventType) *Event {
	return &Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		RequestID:  types.GetRequestID(ctx),
		Data:       make(map[string]interface{}),
	}
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

type eventPublisher struct {
	pubSub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

func NewEventPublisher(pubSub pubsub.PubSub, cfg *config.Configuration, log *logger.Logger) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		topic:  cfg.Events.Topic,
		logger: log,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal event").
			Mark(ierr.ErrInternal)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("tenant_id", event.TenantID)
	// events of one lease stay ordered
	partitionKey := event.LeaseID
	if partitionKey == "" {
		partitionKey = event.TenantID
	}
	msg.Metadata.Set(pubsub.PartitionKey, partitionKey)

	if err := p.pubSub.Publish(ctx, p.topic, msg); err != nil {
		p.logger.Errorw("failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return err
	}

	p.logger.Debugw("published event",
		"event_id", event.ID,
		"event_type", event.Type,
		"lease_id", event.LeaseID)
	return nil
}

// Decode parses a message produced by Publish.
func Decode(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid event payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}
