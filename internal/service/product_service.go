package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/google/uuid"
)

// ProductInput is the writable part of a product.
type ProductInput struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Price       entity.Money `json:"price"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl"`
	Stock       int          `json:"stock"`
}

// ProductService serves the catalogue and its administration.
type ProductService struct {
	products repository.ProductRepository
	now      entity.Clock
	newID    func() string
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products, now: time.Now, newID: uuid.NewString}
}

func (s *ProductService) ListProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	products, err := s.products.FindProducts(ctx, filter)
	if err != nil {
		return nil, entity.Persistence("list products", err)
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (entity.Product, error) {
	p, err := s.products.FindProductByID(ctx, id)
	if err != nil {
		return entity.Product{}, entity.Persistence("find product", err)
	}
	return p, nil
}

// CreateProduct adds a product. A blank id is generated.
func (s *ProductService) CreateProduct(ctx context.Context, actor entity.Identity, in ProductInput) (entity.Product, error) {
	if err := requireCatalogRole(actor); err != nil {
		return entity.Product{}, err
	}
	now := s.now()
	p := in.product()
	if p.ID == "" {
		p.ID = s.newID()
	}
	p.CreatedAt, p.UpdatedAt = now, now

	verr := &entity.ValidationError{}
	errors.As(p.Validate(), &verr)
	if p.Price == 0 {
		verr.Add("price", "must be greater than 0")
	}
	if err := verr.OrNil(); err != nil {
		return entity.Product{}, err
	}

	created, err := s.products.CreateProduct(ctx, p)
	if err != nil {
		return entity.Product{}, entity.Persistence("create product", err)
	}
	slog.Info("Product created", "product_id", created.ID, "by", actor.UserID)
	return created, nil
}

// UpdateProduct replaces the writable fields of product id.
func (s *ProductService) UpdateProduct(ctx context.Context, actor entity.Identity, id string, in ProductInput) (entity.Product, error) {
	if err := requireCatalogRole(actor); err != nil {
		return entity.Product{}, err
	}
	existing, err := s.products.FindProductByID(ctx, id)
	if err != nil {
		return entity.Product{}, entity.Persistence("find product", err)
	}

	p := in.product()
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	if err := p.Validate(); err != nil {
		return entity.Product{}, err
	}

	updated, err := s.products.UpdateProduct(ctx, p)
	if err != nil {
		return entity.Product{}, entity.Persistence("update product", err)
	}
	slog.Info("Product updated", "product_id", updated.ID, "by", actor.UserID)
	return updated, nil
}

// DeleteProduct removes a product. Orders keep their own snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, actor entity.Identity, id string) error {
	if err := requireCatalogRole(actor); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return entity.Persistence("delete product", err)
	}
	slog.Info("Product deleted", "product_id", id, "by", actor.UserID)
	return nil
}

func (in ProductInput) product() entity.Product {
	return entity.Product{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Stock:       in.Stock,
	}
}

func requireCatalogRole(actor entity.Identity) error {
	if !actor.Authenticated() {
		return entity.ErrUnauthenticated
	}
	if !actor.Role.CanManageCatalog() {
		return entity.ErrForbidden
	}
	return nil
}

func requireAdmin(actor entity.Identity) error {
	if !actor.Authenticated() {
		return entity.ErrUnauthenticated
	}
	if !actor.Role.IsAdmin() {
		return entity.ErrForbidden
	}
	return nil
}
