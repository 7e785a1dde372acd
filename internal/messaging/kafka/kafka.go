// Package kafka publishes and consumes order events on Kafka topics.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	kafkaGo "github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafkaGo.Writer the broker uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// Publishing happens on the request path after the order is stored, so a
// write never waits longer than PublishTimeout.
const (
	PublishTimeout = 3 * time.Second
	batchTimeout   = 5 * time.Millisecond
)

type kafkaBroker struct {
	brokers        []string
	publishTimeout time.Duration

	mu        sync.Mutex
	writers   map[string]messageWriter
	newWriter func(topic string) messageWriter
}

// Broker is both a Publisher and a Subscriber. Close flushes the writers.
type Broker interface {
	messaging.Publisher
	messaging.Subscriber
	Close() error
}

// NewKafkaBroker creates a new Kafka publisher and subscriber.
func NewKafkaBroker(brokers []string) Broker {
	kb := &kafkaBroker{
		brokers:        brokers,
		publishTimeout: PublishTimeout,
		writers:        make(map[string]messageWriter),
	}
	kb.newWriter = func(topic string) messageWriter {
		return &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			BatchTimeout:           batchTimeout,
			MaxAttempts:            3,
			WriteTimeout:           PublishTimeout,
			RequiredAcks:           kafkaGo.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}
	return kb
}

// writer returns the long-lived writer for topic, creating it on first use.
func (k *kafkaBroker) writer(topic string) messageWriter {
	k.mu.Lock()
	defer k.mu.Unlock()

	w, ok := k.writers[topic]
	if !ok {
		w = k.newWriter(topic)
		k.writers[topic] = w
	}
	return w
}

// PublishEvent keys messages by order id so every event of one order lands on
// the same partition in order.
func (k *kafkaBroker) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	payload, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, k.publishTimeout)
	defer cancel()

	err = k.writer(topic).WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(event.AggregateID()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", event.EventType(), topic, err)
	}
	return nil
}

func (k *kafkaBroker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Consumer shutting down", "topic", topic)
				return
			}
			slog.Error("Error reading message", "topic", topic, "err", err)
			continue
		}

		env, err := messaging.Decode(msg.Value)
		if err != nil {
			slog.Error("Dropping undecodable message", "topic", topic, "offset", msg.Offset, "err", err)
			continue
		}
		if err := handler(ctx, env); err != nil {
			slog.Error("Error handling message", "topic", topic, "order_id", env.OrderID, "err", err)
		}
	}
}

func (k *kafkaBroker) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for topic, w := range k.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(k.writers, topic)
	}
	return firstErr
}
