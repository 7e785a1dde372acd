package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event represents a domain event about one order.
type Event interface {
	EventType() string
	AggregateID() string
	OwnerID() string
}

// OrderPlaced is emitted once an order has been durably created.
type OrderPlaced struct {
	OrderID  string      `json:"orderId"`
	UserID   string      `json:"userId"`
	Items    []OrderItem `json:"items"`
	Total    Money       `json:"total"`
	Status   OrderStatus `json:"status"`
	PlacedAt time.Time   `json:"placedAt"`
}

func (e OrderPlaced) EventType() string   { return "OrderPlaced" }
func (e OrderPlaced) AggregateID() string { return e.OrderID }
func (e OrderPlaced) OwnerID() string     { return e.UserID }

// OrderStatusChanged is emitted after a status transition was persisted.
type OrderStatusChanged struct {
	OrderID   string      `json:"orderId"`
	UserID    string      `json:"userId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
}

func (e OrderStatusChanged) EventType() string   { return "OrderStatusChanged" }
func (e OrderStatusChanged) AggregateID() string { return e.OrderID }
func (e OrderStatusChanged) OwnerID() string     { return e.UserID }

// EventEnvelope is the wire form of an event on every transport.
type EventEnvelope struct {
	Type    string          `json:"type"`
	OrderID string          `json:"orderId"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals e into its wire form.
func NewEnvelope(e Event) (EventEnvelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal event %s: %w", e.EventType(), err)
	}
	return EventEnvelope{
		Type:    e.EventType(),
		OrderID: e.AggregateID(),
		UserID:  e.OwnerID(),
		Payload: payload,
	}, nil
}
