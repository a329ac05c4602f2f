package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PubSub is the transport domain events travel on.
type PubSub interface {
	Publish(ctx context.Context, topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// PartitionKey is the metadata key kafka partitions by.
const PartitionKey = "partition_key"
