package repository

import (
	"context"

	"github.com/egannguyen/pharma-storefront/internal/entity"
)

// Missing entities are reported as entity.ErrNotFound and duplicate unique
// keys as entity.ErrConflict. Every other error is a backend failure.

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p entity.Product) (entity.Product, error)
	FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error)
	FindProductByID(ctx context.Context, id string) (entity.Product, error)
	UpdateProduct(ctx context.Context, p entity.Product) (entity.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error)
	FindOrderByID(ctx context.Context, id string) (entity.Order, error)
	FindOrdersByUser(ctx context.Context, userID string) ([]entity.Order, error)
	FindAllOrders(ctx context.Context) ([]entity.Order, error)
	UpdateOrderStatus(ctx context.Context, o entity.Order) (entity.Order, error)
}

// UserRepository handles persistence for Users.
type UserRepository interface {
	CreateUser(ctx context.Context, u entity.User) (entity.User, error)
	FindUserByID(ctx context.Context, id string) (entity.User, error)
	FindUserByEmail(ctx context.Context, email string) (entity.User, error)
	FindUsers(ctx context.Context) ([]entity.User, error)
	UpdateUser(ctx context.Context, u entity.User) (entity.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Gateway is the full persistence collaborator. Adapters: memory, jsonfile, postgres.
type Gateway interface {
	ProductRepository
	OrderRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

// CartStore keeps carts keyed by user id. A missing cart reads as empty.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*entity.Cart, error)
	SaveCart(ctx context.Context, cart *entity.Cart) error
	ClearCart(ctx context.Context, userID string) error
	// TakeCart returns the cart and empties it in one atomic step.
	TakeCart(ctx context.Context, userID string) (*entity.Cart, error)
	// RestoreCart merges lines back into the user's cart after a failed checkout.
	RestoreCart(ctx context.Context, cart *entity.Cart) error
}
