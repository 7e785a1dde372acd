// Package postgres implements the persistence gateway on database/sql with
// the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// InitDB connects to dsn and verifies the connection. Schema changes are
// applied separately with Migrate.
func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected")
	return db, nil
}

// Migrate creates the storefront tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("Database migrated")
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		price BIGINT NOT NULL DEFAULT 0 CHECK (price >= 0),
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subtotal BIGINT NOT NULL,
		delivery_fee BIGINT NOT NULL,
		total BIGINT NOT NULL,
		status TEXT NOT NULL,
		ship_full_name TEXT NOT NULL,
		ship_phone TEXT NOT NULL,
		ship_address TEXT NOT NULL,
		ship_city TEXT NOT NULL,
		ship_state TEXT NOT NULL,
		ship_postal_code TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS order_items (
		id SERIAL PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		position INT NOT NULL,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		unit_price BIGINT NOT NULL,
		quantity BIGINT NOT NULL CHECK (quantity >= 1)
	);

	CREATE TABLE IF NOT EXISTS order_events (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		version INT NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (order_id, version)
	);

	ALTER TABLE order_items ALTER COLUMN quantity TYPE BIGINT;
`

type gateway struct {
	*productRepository
	*orderRepository
	*userRepository
	db *sql.DB
}

// NewGateway wraps db as a repository.Gateway. Close closes db.
func NewGateway(db *sql.DB) repository.Gateway {
	return &gateway{
		productRepository: &productRepository{db: db},
		orderRepository:   &orderRepository{db: db},
		userRepository:    &userRepository{db: db},
		db:                db,
	}
}

func (g *gateway) Ping(ctx context.Context) error { return g.db.PingContext(ctx) }

func (g *gateway) Close() error { return g.db.Close() }

// mapError turns driver conditions into the gateway's domain sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return entity.ErrConflict
	}
	return err
}

// requireAffected reports ErrNotFound when an UPDATE or DELETE matched no row.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
