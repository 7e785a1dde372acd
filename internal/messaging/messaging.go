// Package messaging carries order events to the in-process bus, Kafka and any
// other sink behind one Publisher interface.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/entity"
)

const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status_changed"
)

// Topics lists every topic the storefront publishes to.
var Topics = []string{TopicOrderPlaced, TopicOrderStatusChanged}

// TopicFor returns the topic an event is published to.
func TopicFor(e entity.Event) string {
	switch e.(type) {
	case entity.OrderPlaced, *entity.OrderPlaced:
		return TopicOrderPlaced
	default:
		return TopicOrderStatusChanged
	}
}

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, event entity.Event) error
}

// Handler processes one decoded event envelope.
type Handler func(ctx context.Context, env entity.EventEnvelope) error

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler Handler)
}

// Encode marshals e into the wire envelope shared by every transport.
func Encode(e entity.Event) ([]byte, error) {
	env, err := entity.NewEnvelope(e)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return payload, nil
}

// Decode parses a wire envelope.
func Decode(payload []byte) (entity.EventEnvelope, error) {
	var env entity.EventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return entity.EventEnvelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}

// Fanout publishes each event to every publisher, continuing past failures.
type Fanout []Publisher

func (f Fanout) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishEvent(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, entity.Event) error { return nil }
