package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/entity"
)

type productRepository struct {
	db *sql.DB
}

const productColumns = "id, name, category, price, description, image_url, stock, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Description, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *productRepository) CreateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		p.ID, p.Name, p.Category, p.Price, p.Description, p.ImageURL, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to insert product %s: %w", p.ID, mapError(err))
	}
	return p, nil
}

func (r *productRepository) FindProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	var args []any
	if filter.Category != "" {
		query += " WHERE LOWER(category) = LOWER($1)"
		args = append(args, filter.Category)
	}
	query += " ORDER BY name, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) FindProductByID(ctx context.Context, id string) (entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to find product %s: %w", id, mapError(err))
	}
	return p, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name = $2, category = $3, price = $4, description = $5, image_url = $6, stock = $7, updated_at = $8 WHERE id = $1",
		p.ID, p.Name, p.Category, p.Price, p.Description, p.ImageURL, p.Stock, p.UpdatedAt,
	)
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to update product %s: %w", p.ID, mapError(err))
	}
	if err := requireAffected(res); err != nil {
		return entity.Product{}, err
	}
	return p, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return requireAffected(res)
}
