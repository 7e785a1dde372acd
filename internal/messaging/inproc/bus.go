// Package inproc is the in-process event bus that feeds realtime subscribers
// such as the websocket order feed.
package inproc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
)

const outputBuffer = 64

// Bus is a watermill gochannel pub/sub carrying encoded event envelopes.
type Bus struct {
	pubsub *gochannel.GoChannel
}

var (
	_ messaging.Publisher  = (*Bus)(nil)
	_ messaging.Subscriber = (*Bus)(nil)
)

// NewBus creates a Bus. Events published while nobody is subscribed are dropped.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: outputBuffer},
			watermill.NewSlogLogger(logger),
		),
	}
}

func (b *Bus) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	payload, err := messaging.Encode(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe streams decoded envelopes from topic until ctx is done, then
// closes the returned channel.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan entity.EventEnvelope, error) {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan entity.EventEnvelope)
	go func() {
		defer close(out)
		for msg := range messages {
			env, err := messaging.Decode(msg.Payload)
			msg.Ack()
			if err != nil {
				slog.Error("Dropping undecodable message", "topic", topic, "message_id", msg.UUID, "err", err)
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Consume runs handler for every envelope on topic until ctx is done. The
// group id is ignored: every in-process subscriber sees every event.
func (b *Bus) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	envelopes, err := b.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Consumer failed to start", "topic", topic, "err", err)
		return
	}
	for env := range envelopes {
		if err := handler(ctx, env); err != nil {
			slog.Error("Error handling message", "topic", topic, "order_id", env.OrderID, "err", err)
		}
	}
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
