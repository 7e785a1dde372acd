package entity

import (
	"fmt"
	"strings"
	"time"
)

// Money is an amount in currency minor units.
type Money = int64

// MaxPrice bounds a product's unit price.
const MaxPrice Money = 1_000_000_000

// Product represents a product in the catalogue.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       Money     `json:"price"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields an admin must provide for a product.
func (p Product) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		verr.Add("category", "is required")
	}
	if p.Price < 0 {
		verr.Add("price", "must not be negative")
	}
	if p.Price > MaxPrice {
		verr.Add("price", fmt.Sprintf("must be at most %d", MaxPrice))
	}
	if p.Stock < 0 {
		verr.Add("stock", "must not be negative")
	}
	return verr.OrNil()
}

// ProductSnapshot is the copy of a product embedded in an order item.
type ProductSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       Money  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// Snapshot captures the product by value.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
	}
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
}

// Matches reports whether p passes the filter.
func (f ProductFilter) Matches(p Product) bool {
	return f.Category == "" || strings.EqualFold(f.Category, p.Category)
}

// User is an account of the storefront. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Validate requires every field to be present and non-blank.
func (a ShippingAddress) Validate() error {
	verr := &ValidationError{}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"shippingAddress.fullName", a.FullName},
		{"shippingAddress.phone", a.Phone},
		{"shippingAddress.address", a.Address},
		{"shippingAddress.city", a.City},
		{"shippingAddress.state", a.State},
		{"shippingAddress.postalCode", a.PostalCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			verr.Add(f.name, "is required")
		}
	}
	return verr.OrNil()
}

// OrderItem is a line item within an order. Product and Price are captured
// at order time and never change afterwards.
type OrderItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
	Price    Money           `json:"price"`
}

// LineTotal is Price × Quantity.
func (i OrderItem) LineTotal() Money {
	return i.Price * Money(i.Quantity)
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	Subtotal        Money           `json:"subtotal"`
	DeliveryFee     Money           `json:"deliveryFee"`
	Total           Money           `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share the item slice with callers.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem(nil), o.Items...)
	return c
}

// Clock returns the current time; services inject it so tests can pin "now".
type Clock func() time.Time
