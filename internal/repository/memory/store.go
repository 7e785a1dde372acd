// Package memory is an in-process persistence gateway. It is constructed
// explicitly and injected; nothing here is package-level state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
)

type store struct {
	mu       sync.RWMutex
	products map[string]entity.Product
	orders   map[string]entity.Order
	users    map[string]entity.User
}

// NewGateway creates an empty in-memory Gateway.
func NewGateway() repository.Gateway {
	return &store{
		products: make(map[string]entity.Product),
		orders:   make(map[string]entity.Order),
		users:    make(map[string]entity.User),
	}
}

func (s *store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *store) Close() error { return nil }

// --- Products ---

func (s *store) CreateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return entity.Product{}, entity.ErrConflict
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *store) FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]entity.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Matches(p) {
			products = append(products, p)
		}
	}
	SortProducts(products)
	return products, nil
}

func (s *store) FindProductByID(ctx context.Context, id string) (entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return entity.Product{}, entity.ErrNotFound
	}
	return p, nil
}

func (s *store) UpdateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return entity.Product{}, entity.ErrNotFound
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// --- Orders ---

func (s *store) CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return entity.Order{}, entity.ErrConflict
	}
	s.orders[o.ID] = o.Clone()
	return o.Clone(), nil
}

func (s *store) FindOrderByID(ctx context.Context, id string) (entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return entity.Order{}, entity.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *store) FindOrdersByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	return s.findOrders(func(o entity.Order) bool { return o.UserID == userID }), nil
}

func (s *store) FindAllOrders(ctx context.Context) ([]entity.Order, error) {
	return s.findOrders(func(entity.Order) bool { return true }), nil
}

func (s *store) findOrders(keep func(entity.Order) bool) []entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []entity.Order{}
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, o.Clone())
		}
	}
	SortOrders(orders)
	return orders
}

// UpdateOrderStatus writes only the status and updatedAt of o; the item list
// of a stored order is immutable.
func (s *store) UpdateOrderStatus(ctx context.Context, o entity.Order) (entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return entity.Order{}, entity.ErrNotFound
	}
	stored.Status = o.Status
	stored.UpdatedAt = o.UpdatedAt
	s.orders[o.ID] = stored
	return stored.Clone(), nil
}

// --- Users ---

func (s *store) CreateUser(ctx context.Context, u entity.User) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return entity.User{}, entity.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return entity.User{}, entity.ErrConflict
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *store) FindUserByID(ctx context.Context, id string) (entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return entity.User{}, entity.ErrNotFound
	}
	return u, nil
}

func (s *store) FindUserByEmail(ctx context.Context, email string) (entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return entity.User{}, entity.ErrNotFound
}

func (s *store) FindUsers(ctx context.Context) ([]entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]entity.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	SortUsers(users)
	return users, nil
}

func (s *store) UpdateUser(ctx context.Context, u entity.User) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return entity.User{}, entity.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return entity.User{}, entity.ErrConflict
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// SortProducts orders products by name, then id.
func SortProducts(products []entity.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
}

// SortOrders orders newest first.
func SortOrders(orders []entity.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// SortUsers orders newest first.
func SortUsers(users []entity.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
}
