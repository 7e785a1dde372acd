package metrics

import (
	"context"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/prometheus/client_golang/prometheus"
)

type countingPublisher struct {
	next   messaging.Publisher
	events *prometheus.CounterVec
}

// Instrument counts every event p publishes by topic and outcome.
func (m *ServerMetrics) Instrument(p messaging.Publisher) messaging.Publisher {
	return &countingPublisher{next: p, events: m.Events}
}

func (c *countingPublisher) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	err := c.next.PublishEvent(ctx, topic, event)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.events.WithLabelValues(topic, outcome).Inc()
	return err
}
