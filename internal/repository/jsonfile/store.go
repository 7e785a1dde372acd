// Package jsonfile persists the catalogue, users and orders as a single JSON
// document. Every mutation rewrites the document through a temporary file and
// a rename, so a crash never leaves a half-written store behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/egannguyen/pharma-storefront/internal/repository/memory"
	"github.com/spf13/afero"
)

type document struct {
	Products []entity.Product `json:"products"`
	Users    []storedUser     `json:"users"`
	Orders   []entity.Order   `json:"orders"`
}

// storedUser keeps the password hash, which entity.User never serializes.
type storedUser struct {
	entity.User
	PasswordHash string `json:"passwordHash"`
}

type store struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
	doc  document
}

// Open loads the document at path, creating an empty one if it does not exist.
func Open(fs afero.Fs, path string) (repository.Gateway, error) {
	s := &store{fs: fs, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	slog.Info("JSON store opened", "path", path, "products", len(s.doc.Products), "users", len(s.doc.Users), "orders", len(s.doc.Orders))
	return s, nil
}

func (s *store) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
		return s.flush()
	}
	if err != nil {
		return fmt.Errorf("failed to read store %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return fmt.Errorf("failed to decode store %s: %w", s.path, err)
	}
	for i := range s.doc.Users {
		role, err := entity.ParseRole(string(s.doc.Users[i].Role))
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", s.doc.Users[i].ID, err)
		}
		s.doc.Users[i].Role = role
	}
	return nil
}

// flush must be called with the write lock held.
func (s *store) flush() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// mutate applies fn under the write lock and persists the result. If the
// write fails the in-memory document is rolled back.
func (s *store) mutate(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.doc.clone()
	if err := fn(&s.doc); err != nil {
		s.doc = before
		return err
	}
	if err := s.flush(); err != nil {
		s.doc = before
		return err
	}
	return nil
}

func (d document) clone() document {
	c := document{
		Products: append([]entity.Product(nil), d.Products...),
		Users:    append([]storedUser(nil), d.Users...),
		Orders:   make([]entity.Order, len(d.Orders)),
	}
	for i, o := range d.Orders {
		c.Orders[i] = o.Clone()
	}
	return c
}

func (s *store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.fs.Stat(s.path)
	return err
}

func (s *store) Close() error { return nil }

// --- Products ---

func (s *store) CreateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	err := s.mutate(func(doc *document) error {
		if doc.productIndex(p.ID) >= 0 {
			return entity.ErrConflict
		}
		doc.Products = append(doc.Products, p)
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	return p, nil
}

func (s *store) FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []entity.Product{}
	for _, p := range s.doc.Products {
		if filter.Matches(p) {
			products = append(products, p)
		}
	}
	memory.SortProducts(products)
	return products, nil
}

func (s *store) FindProductByID(ctx context.Context, id string) (entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.doc.productIndex(id); i >= 0 {
		return s.doc.Products[i], nil
	}
	return entity.Product{}, entity.ErrNotFound
}

func (s *store) UpdateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	err := s.mutate(func(doc *document) error {
		i := doc.productIndex(p.ID)
		if i < 0 {
			return entity.ErrNotFound
		}
		doc.Products[i] = p
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	return p, nil
}

func (s *store) DeleteProduct(ctx context.Context, id string) error {
	return s.mutate(func(doc *document) error {
		i := doc.productIndex(id)
		if i < 0 {
			return entity.ErrNotFound
		}
		doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
		return nil
	})
}

func (d *document) productIndex(id string) int {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// --- Orders ---

func (s *store) CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error) {
	err := s.mutate(func(doc *document) error {
		if doc.orderIndex(o.ID) >= 0 {
			return entity.ErrConflict
		}
		doc.Orders = append(doc.Orders, o.Clone())
		return nil
	})
	if err != nil {
		return entity.Order{}, err
	}
	return o.Clone(), nil
}

func (s *store) FindOrderByID(ctx context.Context, id string) (entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.doc.orderIndex(id); i >= 0 {
		return s.doc.Orders[i].Clone(), nil
	}
	return entity.Order{}, entity.ErrNotFound
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
	for _, o := range s.doc.Orders {
		if keep(o) {
			orders = append(orders, o.Clone())
		}
	}
	memory.SortOrders(orders)
	return orders
}

func (s *store) UpdateOrderStatus(ctx context.Context, o entity.Order) (entity.Order, error) {
	var updated entity.Order
	err := s.mutate(func(doc *document) error {
		i := doc.orderIndex(o.ID)
		if i < 0 {
			return entity.ErrNotFound
		}
		doc.Orders[i].Status = o.Status
		doc.Orders[i].UpdatedAt = o.UpdatedAt
		updated = doc.Orders[i].Clone()
		return nil
	})
	if err != nil {
		return entity.Order{}, err
	}
	return updated, nil
}

func (d *document) orderIndex(id string) int {
	for i := range d.Orders {
		if d.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

// --- Users ---

func (s *store) CreateUser(ctx context.Context, u entity.User) (entity.User, error) {
	err := s.mutate(func(doc *document) error {
		if doc.userIndex(u.ID) >= 0 || doc.emailTaken(u.Email, "") {
			return entity.ErrConflict
		}
		doc.Users = append(doc.Users, storedUser{User: u, PasswordHash: u.PasswordHash})
		return nil
	})
	if err != nil {
		return entity.User{}, err
	}
	return u, nil
}

func (s *store) FindUserByID(ctx context.Context, id string) (entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.doc.userIndex(id); i >= 0 {
		return s.doc.Users[i].user(), nil
	}
	return entity.User{}, entity.ErrNotFound
}

func (s *store) FindUserByEmail(ctx context.Context, email string) (entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.Email == email {
			return u.user(), nil
		}
	}
	return entity.User{}, entity.ErrNotFound
}

func (s *store) FindUsers(ctx context.Context) ([]entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]entity.User, 0, len(s.doc.Users))
	for _, u := range s.doc.Users {
		users = append(users, u.user())
	}
	memory.SortUsers(users)
	return users, nil
}

func (s *store) UpdateUser(ctx context.Context, u entity.User) (entity.User, error) {
	err := s.mutate(func(doc *document) error {
		i := doc.userIndex(u.ID)
		if i < 0 {
			return entity.ErrNotFound
		}
		if doc.emailTaken(u.Email, u.ID) {
			return entity.ErrConflict
		}
		doc.Users[i] = storedUser{User: u, PasswordHash: u.PasswordHash}
		return nil
	})
	if err != nil {
		return entity.User{}, err
	}
	return u, nil
}

func (s *store) DeleteUser(ctx context.Context, id string) error {
	return s.mutate(func(doc *document) error {
		i := doc.userIndex(id)
		if i < 0 {
			return entity.ErrNotFound
		}
		doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
		return nil
	})
}

func (d *document) userIndex(id string) int {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *document) emailTaken(email, exceptID string) bool {
	for _, u := range d.Users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (u storedUser) user() entity.User {
	out := u.User
	out.PasswordHash = u.PasswordHash
	return out
}
