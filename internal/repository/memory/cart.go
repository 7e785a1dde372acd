package memory

import (
	"context"
	"sync"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
)

type cartStore struct {
	mu    sync.Mutex
	carts map[string]*entity.Cart
}

// NewCartStore creates an in-memory CartStore.
func NewCartStore() repository.CartStore {
	return &cartStore{carts: make(map[string]*entity.Cart)}
}

func (s *cartStore) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[userID]; ok {
		return c.Clone(), nil
	}
	return entity.NewCart(userID), nil
}

func (s *cartStore) SaveCart(ctx context.Context, cart *entity.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.IsEmpty() {
		delete(s.carts, cart.UserID)
		return nil
	}
	s.carts[cart.UserID] = cart.Clone()
	return nil
}

func (s *cartStore) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}

func (s *cartStore) TakeCart(ctx context.Context, userID string) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return entity.NewCart(userID), nil
	}
	delete(s.carts, userID)
	return c, nil
}

func (s *cartStore) RestoreCart(ctx context.Context, cart *entity.Cart) error {
	if cart.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.carts[cart.UserID]
	if !ok {
		s.carts[cart.UserID] = cart.Clone()
		return nil
	}
	current.Merge(cart)
	return nil
}
