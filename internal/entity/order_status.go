package entity

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// transitions lists the legal edges of the status machine.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// ParseOrderStatus accepts any casing of a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether s → next is a defined edge.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// AuthorizeStatusChange decides whether actor may move an order owned by
// ownerID from one status to another. Administrators may take any defined
// edge. Anyone else may only cancel their own PENDING order.
func AuthorizeStatusChange(actor Identity, ownerID string, from, to OrderStatus) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	switch {
	case actor.Role.IsAdmin():
		return nil
	case actor.Role == RoleCustomer || actor.Role == RoleSupervisor:
		if actor.UserID == ownerID && from == OrderStatusPending && to == OrderStatusCancelled {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// Transition moves the order to next at the given time. Requesting the status
// the order already has is a no-op and reports changed=false.
func (o *Order) Transition(next OrderStatus, at Clock) (changed bool, err error) {
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, &TransitionError{From: o.Status, To: next}
	}
	o.Status = next
	o.UpdatedAt = at()
	return true, nil
}
