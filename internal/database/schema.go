package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// schema is idempotent bootstrap DDL for the catalogue and order tables.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC(10,2) NOT NULL CHECK (price >= 0),
	category    TEXT NOT NULL CHECK (category IN ('Men', 'Women', 'New Arrivals')),
	images      TEXT[] NOT NULL DEFAULT '{}',
	sizes       TEXT[] NOT NULL DEFAULT '{}',
	stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	featured    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC);

CREATE TABLE IF NOT EXISTS orders (
	id                UUID PRIMARY KEY,
	user_id           TEXT,
	shipping_name     TEXT NOT NULL,
	shipping_email    TEXT NOT NULL,
	shipping_phone    TEXT,
	shipping_address  TEXT NOT NULL,
	total             NUMERIC(12,2) NOT NULL CHECK (total >= 0),
	payment_reference TEXT UNIQUE,
	status            TEXT NOT NULL DEFAULT 'pending'
	                  CHECK (status IN ('pending', 'paid', 'shipped', 'delivered')),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id         UUID PRIMARY KEY,
	order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	price      NUMERIC(10,2) NOT NULL CHECK (price >= 0),
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	size       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info().Msg("database schema applied")
	return nil
}
