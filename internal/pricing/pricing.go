// Package pricing computes cart and order totals. Every function is pure.
package pricing

import (
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/entity"
)

const (
	DefaultFreeDeliveryThreshold entity.Money = 10000
	DefaultFlatDeliveryFee       entity.Money = 500

	// MaxOrderValue bounds any subtotal, and the delivery fee, so a total
	// never overflows.
	MaxOrderValue entity.Money = 1 << 53
)

// Line is a priced (product, quantity) pair.
type Line struct {
	ProductID string
	UnitPrice entity.Money
	Quantity  int
}

// Total is UnitPrice × Quantity.
func (l Line) Total() entity.Money {
	return l.UnitPrice * entity.Money(l.Quantity)
}

// Policy holds the delivery-fee tiering.
type Policy struct {
	FreeDeliveryThreshold entity.Money
	FlatDeliveryFee       entity.Money
}

// DefaultPolicy is free delivery from 10,000 units, otherwise a flat 500.
func DefaultPolicy() Policy {
	return Policy{
		FreeDeliveryThreshold: DefaultFreeDeliveryThreshold,
		FlatDeliveryFee:       DefaultFlatDeliveryFee,
	}
}

// Quote is the breakdown of a cart or order total.
type Quote struct {
	Subtotal    entity.Money `json:"subtotal"`
	DeliveryFee entity.Money `json:"deliveryFee"`
	Total       entity.Money `json:"total"`
	ItemCount   int          `json:"itemCount"`
}

// Subtotal is Σ(unit price × quantity).
func Subtotal(lines []Line) entity.Money {
	var sum entity.Money
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}

// DeliveryFee is zero once subtotal reaches the threshold, the flat fee otherwise.
func (p Policy) DeliveryFee(subtotal entity.Money) entity.Money {
	if subtotal >= p.FreeDeliveryThreshold {
		return 0
	}
	return p.FlatDeliveryFee
}

// Quote prices lines under the policy. An empty cart has nothing to deliver
// and quotes zero.
func (p Policy) Quote(lines []Line) Quote {
	if len(lines) == 0 {
		return Quote{}
	}
	subtotal := Subtotal(lines)
	fee := p.DeliveryFee(subtotal)

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
		ItemCount:   count,
	}
}

// Validate rejects lines with a quantity outside 1..entity.MaxLineQuantity,
// a negative price, or a subtotal above MaxOrderValue. Sums are checked
// before they are formed.
func Validate(lines []Line) error {
	verr := &entity.ValidationError{}
	var sum entity.Money
	overflow := false
	for _, l := range lines {
		valid := true
		if l.Quantity < 1 {
			verr.Add("items."+l.ProductID+".quantity", "must be at least 1")
			valid = false
		}
		if l.Quantity > entity.MaxLineQuantity {
			verr.Add("items."+l.ProductID+".quantity", fmt.Sprintf("must be at most %d", entity.MaxLineQuantity))
			valid = false
		}
		if l.UnitPrice < 0 {
			verr.Add("items."+l.ProductID+".price", "must not be negative")
			valid = false
		}
		if !valid || overflow {
			continue
		}
		if l.UnitPrice > 0 && entity.Money(l.Quantity) > (MaxOrderValue-sum)/l.UnitPrice {
			overflow = true
			continue
		}
		sum += l.Total()
	}
	if overflow {
		verr.Add("items", fmt.Sprintf("order value must be at most %d", MaxOrderValue))
	}
	return verr.OrNil()
}

// FromOrderItems converts captured order items back into priced lines.
func FromOrderItems(items []entity.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{ProductID: it.Product.ID, UnitPrice: it.Price, Quantity: it.Quantity})
	}
	return lines
}
