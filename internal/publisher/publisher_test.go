package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/pubsub"
	"github.com/rentpay/rentpay/internal/pubsub/memory"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_PublishOverMemoryPubSub(t *testing.T) {
	log := logger.NewNopLogger()
	cfg := config.GetDefaultConfig()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := ps.Subscribe(ctx, cfg.Events.Topic)
	require.NoError(t, err)

	pub := NewEventPublisher(ps, cfg, log)
	event := NewEvent(types.SetRequestID(ctx, "req_1"), types.EventPaymentCompleted)
	event.LeaseID = "lease_1"
	event.PaymentID = "rpay_1"
	event.Data["total_amount"] = "2500.00"
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "lease_1", msg.Metadata.Get(pubsub.PartitionKey))
		assert.Equal(t, string(types.EventPaymentCompleted), msg.Metadata.Get("event_type"))

		decoded, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, "rpay_1", decoded.PaymentID)
		assert.Equal(t, "req_1", decoded.RequestID)
		assert.Equal(t, "2500.00", decoded.Data["total_amount"])
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
