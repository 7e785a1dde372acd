package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/lib/pq"
)

type orderRepository struct {
	db *sql.DB
}

const orderColumns = "id, user_id, subtotal, delivery_fee, total, status, " +
	"ship_full_name, ship_phone, ship_address, ship_city, ship_state, ship_postal_code, created_at, updated_at"

const orderItemColumns = "order_id, product_id, name, category, description, image_url, unit_price, quantity"

func scanOrder(row rowScanner) (entity.Order, error) {
	var (
		o      entity.Order
		status string
		a      = &o.ShippingAddress
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.DeliveryFee, &o.Total, &status,
		&a.FullName, &a.Phone, &a.Address, &a.City, &a.State, &a.PostalCode, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return entity.Order{}, err
	}
	o.Status = entity.OrderStatus(status)
	return o, nil
}

// CreateOrder writes the order row and its item snapshots in one transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	a := o.ShippingAddress
	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		o.ID, o.UserID, o.Subtotal, o.DeliveryFee, o.Total, string(o.Status),
		a.FullName, a.Phone, a.Address, a.City, a.State, a.PostalCode, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to insert order: %w", mapError(err))
	}

	for i, item := range o.Items {
		p := item.Product
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (position, "+orderItemColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			i, o.ID, p.ID, p.Name, p.Category, p.Description, p.ImageURL, item.Price, item.Quantity,
		)
		if err != nil {
			return entity.Order{}, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return entity.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return o.Clone(), nil
}

func (r *orderRepository) FindOrderByID(ctx context.Context, id string) (entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to find order %s: %w", id, mapError(err))
	}
	orders := []entity.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return entity.Order{}, err
	}
	return orders[0], nil
}

func (r *orderRepository) FindOrdersByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	return r.findOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
}

func (r *orderRepository) FindAllOrders(ctx context.Context) ([]entity.Order, error) {
	return r.findOrders(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC")
}

func (r *orderRepository) findOrders(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order in a single query.
func (r *orderRepository) attachItems(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    entity.OrderItem
			p       = &item.Product
		)
		if err := rows.Scan(&orderID, &p.ID, &p.Name, &p.Category, &p.Description, &p.ImageURL, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		p.Price = item.Price
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order item rows: %w", err)
	}
	return nil
}

// UpdateOrderStatus writes only status and updated_at; order items are never rewritten.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, o entity.Order) (entity.Order, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1",
		o.ID, string(o.Status), o.UpdatedAt,
	)
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to update order %s: %w", o.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return entity.Order{}, err
	}
	return r.FindOrderByID(ctx, o.ID)
}
