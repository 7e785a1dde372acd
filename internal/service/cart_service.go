package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/pricing"
	"github.com/egannguyen/pharma-storefront/internal/repository"
)

// CartLine is a cart line priced at the product's current price.
type CartLine struct {
	Product   entity.Product `json:"product"`
	Quantity  int            `json:"quantity"`
	LineTotal entity.Money   `json:"lineTotal"`
}

// CartView is a cart with its live quote.
type CartView struct {
	UserID string     `json:"userId"`
	Items  []CartLine `json:"items"`
	pricing.Quote
}

// CartService manages the server-side cart of each user.
type CartService struct {
	carts    repository.CartStore
	products repository.ProductRepository
	policy   pricing.Policy
}

func NewCartService(carts repository.CartStore, products repository.ProductRepository, policy pricing.Policy) *CartService {
	return &CartService{carts: carts, products: products, policy: policy}
}

// GetCart prices the caller's cart. Lines whose product no longer exists are
// dropped from the stored cart.
func (s *CartService) GetCart(ctx context.Context, actor entity.Identity) (CartView, error) {
	if !actor.Authenticated() {
		return CartView{}, entity.ErrUnauthenticated
	}
	cart, err := s.carts.GetCart(ctx, actor.UserID)
	if err != nil {
		return CartView{}, entity.Persistence("get cart", err)
	}
	return s.view(ctx, cart)
}

// AddItem adds qty of productID to the caller's cart.
func (s *CartService) AddItem(ctx context.Context, actor entity.Identity, productID string, qty int) (CartView, error) {
	return s.mutate(ctx, actor, productID, func(c *entity.Cart) error {
		return c.Add(productID, qty)
	})
}

// SetItem replaces the quantity of productID. Zero removes the line; a
// negative quantity is rejected.
func (s *CartService) SetItem(ctx context.Context, actor entity.Identity, productID string, qty int) (CartView, error) {
	if qty < 0 {
		return CartView{}, entity.NewValidationError("quantity", "must not be negative")
	}
	return s.mutate(ctx, actor, productID, func(c *entity.Cart) error {
		return c.SetQuantity(productID, qty)
	})
}

// RemoveItem deletes the line for productID. Removing an absent line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, actor entity.Identity, productID string) (CartView, error) {
	if !actor.Authenticated() {
		return CartView{}, entity.ErrUnauthenticated
	}
	cart, err := s.carts.GetCart(ctx, actor.UserID)
	if err != nil {
		return CartView{}, entity.Persistence("get cart", err)
	}
	if cart.Remove(productID) {
		if err := s.carts.SaveCart(ctx, cart); err != nil {
			return CartView{}, entity.Persistence("save cart", err)
		}
	}
	return s.view(ctx, cart)
}

// Clear empties the caller's cart.
func (s *CartService) Clear(ctx context.Context, actor entity.Identity) error {
	if !actor.Authenticated() {
		return entity.ErrUnauthenticated
	}
	if err := s.carts.ClearCart(ctx, actor.UserID); err != nil {
		return entity.Persistence("clear cart", err)
	}
	return nil
}

func (s *CartService) mutate(ctx context.Context, actor entity.Identity, productID string, fn func(*entity.Cart) error) (CartView, error) {
	if !actor.Authenticated() {
		return CartView{}, entity.ErrUnauthenticated
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		return CartView{}, entity.Persistence("find product", err)
	}
	cart, err := s.carts.GetCart(ctx, actor.UserID)
	if err != nil {
		return CartView{}, entity.Persistence("get cart", err)
	}
	if err := fn(cart); err != nil {
		return CartView{}, err
	}
	if err := s.checkValue(ctx, cart); err != nil {
		return CartView{}, err
	}
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return CartView{}, entity.Persistence("save cart", err)
	}
	return s.view(ctx, cart)
}

// checkValue rejects a cart whose priced lines could not be checked out.
func (s *CartService) checkValue(ctx context.Context, cart *entity.Cart) error {
	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, err := s.products.FindProductByID(ctx, it.ProductID)
		if errors.Is(err, entity.ErrNotFound) {
			continue
		}
		if err != nil {
			return entity.Persistence("find product", err)
		}
		lines = append(lines, pricing.Line{ProductID: p.ID, UnitPrice: p.Price, Quantity: it.Quantity})
	}
	return pricing.Validate(lines)
}

func (s *CartService) view(ctx context.Context, cart *entity.Cart) (CartView, error) {
	out := CartView{UserID: cart.UserID, Items: []CartLine{}}
	lines := make([]pricing.Line, 0, len(cart.Items))
	stale := false

	for _, it := range cart.Items {
		p, err := s.products.FindProductByID(ctx, it.ProductID)
		if errors.Is(err, entity.ErrNotFound) {
			stale = true
			continue
		}
		if err != nil {
			return CartView{}, entity.Persistence("find product", err)
		}
		line := pricing.Line{ProductID: p.ID, UnitPrice: p.Price, Quantity: it.Quantity}
		lines = append(lines, line)
		out.Items = append(out.Items, CartLine{Product: p, Quantity: it.Quantity, LineTotal: line.Total()})
	}

	if stale {
		pruned := entity.NewCart(cart.UserID)
		for _, l := range lines {
			_ = pruned.Add(l.ProductID, l.Quantity)
		}
		if err := s.carts.SaveCart(ctx, pruned); err != nil {
			slog.Warn("Failed to prune cart", "user_id", cart.UserID, "err", err)
		}
	}

	out.Quote = s.policy.Quote(lines)
	return out, nil
}
