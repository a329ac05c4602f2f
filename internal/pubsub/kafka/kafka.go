package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	kafkacfg "github.com/rentpay/rentpay/internal/kafka"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/pubsub"
)

// PubSub publishes to and consumes from Kafka through watermill. Messages of
// one lease share a partition so consumers see them in order.
type PubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *logger.Logger
}

var _ pubsub.PubSub = (*PubSub)(nil)

func NewPubSub(cfg *config.Configuration, log *logger.Logger, consumerGroup string) (*PubSub, error) {
	saramaConfig := kafkacfg.GetSaramaConfig(cfg)
	wmLogger := log.GetWatermillLogger()

	marshaler := kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(pubsub.PartitionKey), nil
	})

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               cfg.Kafka.Brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: saramaConfig,
	}, wmLogger)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka publisher").
			Mark(ierr.ErrSystem)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Kafka.Brokers,
		Unmarshaler:           marshaler,
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         consumerGroup,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka subscriber").
			Mark(ierr.ErrSystem)
	}

	log.Infow("kafka pubsub initialised", "brokers", cfg.Kafka.Brokers, "consumer_group", consumerGroup)

	return &PubSub{publisher: publisher, subscriber: subscriber, logger: log}, nil
}

func (p *PubSub) Publish(ctx context.Context, topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		msg.SetContext(ctx)
	}
	if err := p.publisher.Publish(topic, messages...); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish to kafka").
			Mark(ierr.ErrSystem)
	}
	return nil
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.subscriber.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	if err := p.publisher.Close(); err != nil {
		p.logger.Errorw("failed to close kafka publisher", "error", err)
	}
	return p.subscriber.Close()
}
