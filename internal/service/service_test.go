package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/pricing"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/egannguyen/pharma-storefront/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	admin    = entity.Identity{UserID: "admin-1", Role: entity.RoleAdmin}
	customer = entity.Identity{UserID: "cust-1", Role: entity.RoleCustomer}
	other    = entity.Identity{UserID: "cust-2", Role: entity.RoleCustomer}
	super    = entity.Identity{UserID: "sup-1", Role: entity.RoleSupervisor}
	anon     = entity.Identity{}
)

var lagos = entity.ShippingAddress{
	FullName: "Ada Obi", Phone: "08030000000", Address: "12 Marina",
	City: "Lagos", State: "Lagos", PostalCode: "100001",
}

type eventRecorder struct {
	mu     sync.Mutex
	events []entity.Event
	err    error
}

func (r *eventRecorder) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) all() []entity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Event(nil), r.events...)
}

// failingOrders fails every CreateOrder call.
type failingOrders struct {
	repository.Gateway
}

func (failingOrders) CreateOrder(context.Context, entity.Order) (entity.Order, error) {
	return entity.Order{}, errors.New("connection reset by peer")
}

type fixture struct {
	gw       repository.Gateway
	carts    repository.CartStore
	events   *eventRecorder
	orders   *OrderService
	cart     *CartService
	products *ProductService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:     memory.NewGateway(),
		carts:  memory.NewCartStore(),
		events: &eventRecorder{},
	}
	f.wire(f.gw)
	seedProducts(t, f.gw)
	return f
}

func (f *fixture) wire(gw repository.Gateway) {
	f.orders = NewOrderService(gw, gw, f.carts, f.events, pricing.DefaultPolicy())
	f.orders.now = func() time.Time { return now }
	var seq atomic.Int64
	f.orders.newID = func() string {
		return fmt.Sprintf("order-%d", seq.Add(1))
	}
	f.cart = NewCartService(f.carts, gw, pricing.DefaultPolicy())
	f.products = NewProductService(gw)
	f.products.now = func() time.Time { return now }
}

func seedProducts(t *testing.T, gw repository.Gateway) {
	t.Helper()
	for _, p := range []entity.Product{
		{ID: "p1", Name: "Paracetamol 500mg", Category: "Analgesics", Price: 150, Stock: 100},
		{ID: "p2", Name: "Vitamin C 1000mg", Category: "Supplements", Price: 300, Stock: 40},
		{ID: "p3", Name: "Multivitamin Complex", Category: "Supplements", Price: 4500, Stock: 10},
	} {
		p.CreatedAt, p.UpdatedAt = now, now
		_, err := gw.CreateProduct(context.Background(), p)
		require.NoError(t, err)
	}
}

func fillCart(t *testing.T, carts repository.CartStore, userID string, lines map[string]int) {
	t.Helper()
	c := entity.NewCart(userID)
	for id, qty := range lines {
		require.NoError(t, c.Add(id, qty))
	}
	require.NoError(t, carts.SaveCart(context.Background(), c))
}
