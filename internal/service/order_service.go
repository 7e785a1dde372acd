package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/egannguyen/pharma-storefront/internal/pricing"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/google/uuid"
)

// LineRequest is one requested (product, quantity) pair. Prices are never
// taken from the caller.
type LineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is the checkout input. With no Items the caller's
// server-side cart is checked out.
type PlaceOrderRequest struct {
	Items           []LineRequest          `json:"items"`
	ShippingAddress entity.ShippingAddress `json:"shippingAddress"`
}

// OrderService orchestrates order-related business logic.
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	carts     repository.CartStore
	publisher messaging.Publisher
	policy    pricing.Policy
	now       entity.Clock
	newID     func() string
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts repository.CartStore,
	publisher messaging.Publisher,
	policy pricing.Policy,
) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		carts:     carts,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// PlaceOrder snapshots the requested lines (or the caller's cart) into a new
// PENDING order. The order is stored before the cart is emptied for good:
// a taken cart is put back if anything after taking it fails.
func (s *OrderService) PlaceOrder(ctx context.Context, actor entity.Identity, req PlaceOrderRequest) (order entity.Order, err error) {
	if !actor.Authenticated() {
		return entity.Order{}, entity.ErrUnauthenticated
	}

	verr := &entity.ValidationError{}
	if aerr := req.ShippingAddress.Validate(); aerr != nil {
		var av *entity.ValidationError
		if errors.As(aerr, &av) {
			for f, p := range av.Fields {
				verr.Add(f, p)
			}
		}
	}
	for i, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			verr.Add(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		switch {
		case line.Quantity < 1:
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		case line.Quantity > entity.MaxLineQuantity:
			verr.Add(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must be at most %d", entity.MaxLineQuantity))
		}
	}
	if err := verr.OrNil(); err != nil {
		return entity.Order{}, err
	}

	lines := req.Items
	if len(lines) == 0 {
		var taken *entity.Cart
		taken, err = s.carts.TakeCart(ctx, actor.UserID)
		if err != nil {
			return entity.Order{}, entity.Persistence("take cart", err)
		}
		if taken.IsEmpty() {
			return entity.Order{}, entity.NewValidationError("items", "cart is empty")
		}
		defer func() {
			if err != nil {
				s.restoreCart(ctx, taken)
			}
		}()
		for _, it := range taken.Items {
			lines = append(lines, LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}

	items, err := s.snapshot(ctx, lines)
	if err != nil {
		return entity.Order{}, err
	}

	quote := s.policy.Quote(pricing.FromOrderItems(items))
	now := s.now()
	order = entity.Order{
		ID:              s.newID(),
		UserID:          actor.UserID,
		Items:           items,
		Subtotal:        quote.Subtotal,
		DeliveryFee:     quote.DeliveryFee,
		Total:           quote.Total,
		Status:          entity.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return entity.Order{}, entity.Persistence("create order", err)
	}
	slog.Info("Order placed", "order_id", created.ID, "user_id", created.UserID, "items", len(created.Items), "total", created.Total)

	s.publish(ctx, entity.OrderPlaced{
		OrderID:  created.ID,
		UserID:   created.UserID,
		Items:    created.Items,
		Total:    created.Total,
		Status:   created.Status,
		PlacedAt: created.CreatedAt,
	})
	return created, nil
}

// snapshot captures every requested product by value at its current price.
func (s *OrderService) snapshot(ctx context.Context, lines []LineRequest) ([]entity.OrderItem, error) {
	verr := &entity.ValidationError{}
	items := make([]entity.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, err := s.products.FindProductByID(ctx, line.ProductID)
		if errors.Is(err, entity.ErrNotFound) {
			verr.Add("items."+line.ProductID, "unknown product")
			continue
		}
		if err != nil {
			return nil, entity.Persistence("find product", err)
		}
		items = append(items, entity.OrderItem{
			Product:  p.Snapshot(),
			Quantity: line.Quantity,
			Price:    p.Price,
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := pricing.Validate(pricing.FromOrderItems(items)); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *OrderService) restoreCart(ctx context.Context, cart *entity.Cart) {
	if err := s.carts.RestoreCart(context.WithoutCancel(ctx), cart); err != nil {
		slog.Error("Failed to restore cart after checkout failure", "user_id", cart.UserID, "err", err)
		return
	}
	slog.Info("Cart restored after checkout failure", "user_id", cart.UserID)
}

// publish notifies subscribers. The order is already durable, so a broker
// failure is logged and not returned.
func (s *OrderService) publish(ctx context.Context, event entity.Event) {
	topic := messaging.TopicFor(event)
	if err := s.publisher.PublishEvent(ctx, topic, event); err != nil {
		slog.Error("Failed to publish event", "topic", topic, "order_id", event.AggregateID(), "err", err)
	}
}

// ListOrders returns the caller's orders, or every order for an administrator.
func (s *OrderService) ListOrders(ctx context.Context, actor entity.Identity) ([]entity.Order, error) {
	if !actor.Authenticated() {
		return nil, entity.ErrUnauthenticated
	}
	var (
		orders []entity.Order
		err    error
	)
	if actor.Role.IsAdmin() {
		orders, err = s.orders.FindAllOrders(ctx)
	} else {
		orders, err = s.orders.FindOrdersByUser(ctx, actor.UserID)
	}
	if err != nil {
		return nil, entity.Persistence("list orders", err)
	}
	return orders, nil
}

// GetOrder returns one order if the caller owns it or is an administrator.
func (s *OrderService) GetOrder(ctx context.Context, actor entity.Identity, id string) (entity.Order, error) {
	if !actor.Authenticated() {
		return entity.Order{}, entity.ErrUnauthenticated
	}
	o, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return entity.Order{}, entity.Persistence("find order", err)
	}
	if o.UserID != actor.UserID && !actor.Role.IsAdmin() {
		return entity.Order{}, entity.ErrForbidden
	}
	return o, nil
}

// UpdateStatus moves an order along the status machine. Administrators only.
func (s *OrderService) UpdateStatus(ctx context.Context, actor entity.Identity, id string, status string) (entity.Order, error) {
	if !actor.Authenticated() {
		return entity.Order{}, entity.ErrUnauthenticated
	}
	if !actor.Role.IsAdmin() {
		return entity.Order{}, entity.ErrForbidden
	}
	next, err := entity.ParseOrderStatus(status)
	if err != nil {
		return entity.Order{}, entity.NewValidationError("status", "must be one of PENDING, CONFIRMED, SHIPPED, DELIVERED, CANCELLED")
	}
	o, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return entity.Order{}, entity.Persistence("find order", err)
	}
	return s.transition(ctx, actor, o, next)
}

// CancelOrder cancels an order. Owners may cancel while it is PENDING;
// administrators also while it is CONFIRMED.
func (s *OrderService) CancelOrder(ctx context.Context, actor entity.Identity, id string) (entity.Order, error) {
	if !actor.Authenticated() {
		return entity.Order{}, entity.ErrUnauthenticated
	}
	o, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return entity.Order{}, entity.Persistence("find order", err)
	}
	if o.UserID != actor.UserID && !actor.Role.IsAdmin() {
		return entity.Order{}, entity.ErrForbidden
	}
	if o.Status == entity.OrderStatusCancelled {
		return o, nil
	}
	if err := entity.AuthorizeStatusChange(actor, o.UserID, o.Status, entity.OrderStatusCancelled); err != nil {
		return entity.Order{}, fmt.Errorf("%w: an order can only be cancelled by its owner while %s", err, entity.OrderStatusPending)
	}
	return s.transition(ctx, actor, o, entity.OrderStatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, actor entity.Identity, o entity.Order, next entity.OrderStatus) (entity.Order, error) {
	from := o.Status
	changed, err := o.Transition(next, s.now)
	if err != nil {
		return entity.Order{}, err
	}
	if !changed {
		return o, nil
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, o)
	if err != nil {
		return entity.Order{}, entity.Persistence("update order status", err)
	}
	slog.Info("Order status changed", "order_id", updated.ID, "from", from, "to", updated.Status, "by", actor.UserID)

	s.publish(ctx, entity.OrderStatusChanged{
		OrderID:   updated.ID,
		UserID:    updated.UserID,
		From:      from,
		To:        updated.Status,
		ChangedBy: actor.UserID,
		ChangedAt: updated.UpdatedAt,
	})
	return updated, nil
}
