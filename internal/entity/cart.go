package entity

import (
	"fmt"
	"strings"
)

// MaxLineQuantity bounds the quantity of a single cart or order line.
const MaxLineQuantity = 10000

var quantityTooLarge = fmt.Sprintf("must be at most %d", MaxLineQuantity)

// CartItem is a product and quantity held in a user's cart.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart holds the line items of one user. Line order is insertion order.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

// NewCart creates an empty cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Add increases the quantity of productID by qty, creating the line if needed.
func (c *Cart) Add(productID string, qty int) error {
	if strings.TrimSpace(productID) == "" {
		return NewValidationError("productId", "is required")
	}
	if qty < 1 {
		return NewValidationError("quantity", "must be at least 1")
	}
	if qty > MaxLineQuantity {
		return NewValidationError("quantity", quantityTooLarge)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if c.Items[i].Quantity+qty > MaxLineQuantity {
				return NewValidationError("quantity", quantityTooLarge)
			}
			c.Items[i].Quantity += qty
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: qty})
	return nil
}

// SetQuantity replaces the quantity of productID. A quantity of zero or less
// removes the line instead of storing it.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if strings.TrimSpace(productID) == "" {
		return NewValidationError("productId", "is required")
	}
	if qty <= 0 {
		c.Remove(productID)
		return nil
	}
	if qty > MaxLineQuantity {
		return NewValidationError("quantity", quantityTooLarge)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: qty})
	return nil
}

// Remove deletes the line for productID and reports whether it existed.
func (c *Cart) Remove(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Merge adds every line of other into c, capping each line at
// MaxLineQuantity. Used to put a taken cart back.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}
	for _, it := range other.Items {
		if it.Quantity <= 0 || strings.TrimSpace(it.ProductID) == "" {
			continue
		}
		merged := false
		for i := range c.Items {
			if c.Items[i].ProductID == it.ProductID {
				c.Items[i].Quantity = min(c.Items[i].Quantity+min(it.Quantity, MaxLineQuantity), MaxLineQuantity)
				merged = true
				break
			}
		}
		if !merged {
			c.Items = append(c.Items, CartItem{ProductID: it.ProductID, Quantity: min(it.Quantity, MaxLineQuantity)})
		}
	}
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	return &Cart{UserID: c.UserID, Items: append([]CartItem(nil), c.Items...)}
}
