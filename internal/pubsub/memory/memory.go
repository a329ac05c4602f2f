package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/pubsub"
)

// PubSub delivers messages in process. Used in local mode and in tests;
// messages published with no subscriber are dropped.
type PubSub struct {
	ch *gochannel.GoChannel
}

var _ pubsub.PubSub = (*PubSub)(nil)

func NewPubSub(log *logger.Logger) *PubSub {
	return &PubSub{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 1024,
		}, log.GetWatermillLogger()),
	}
}

func (p *PubSub) Publish(_ context.Context, topic string, messages ...*message.Message) error {
	return p.ch.Publish(topic, messages...)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.ch.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.ch.Close()
}
