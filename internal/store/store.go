package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, used by tests.
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	price NUMERIC(12,2) NOT NULL,
	discount_price NUMERIC(12,2),
	category_id BIGINT REFERENCES categories(id),
	slug TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Slugs are stamped after insert (they embed the generated id), so freshly
-- inserted rows briefly carry the empty slug.
CREATE UNIQUE INDEX IF NOT EXISTS items_slug_key
	ON items (slug) WHERE slug <> '';

CREATE TABLE IF NOT EXISTS item_images (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	amount NUMERIC(12,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	ordered BOOLEAN NOT NULL DEFAULT FALSE,
	being_delivered BOOLEAN NOT NULL DEFAULT FALSE,
	received BOOLEAN NOT NULL DEFAULT FALSE,
	ref_code TEXT,
	payment_id BIGINT REFERENCES payments(id),
	start_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	ordered_date TIMESTAMPTZ
);

-- At most one open order (cart) per user.
CREATE UNIQUE INDEX IF NOT EXISTS orders_one_open_per_user
	ON orders (user_id) WHERE NOT ordered;

CREATE UNIQUE INDEX IF NOT EXISTS orders_ref_code_key
	ON orders (ref_code) WHERE ref_code IS NOT NULL;

CREATE TABLE IF NOT EXISTS order_lines (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	item_id BIGINT NOT NULL REFERENCES items(id),
	order_id BIGINT REFERENCES orders(id),
	quantity INT NOT NULL DEFAULT 1 CHECK (quantity >= 1),
	ordered BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS order_lines_order_idx ON order_lines (order_id);
CREATE INDEX IF NOT EXISTS order_lines_user_item_idx ON order_lines (user_id, item_id);

CREATE TABLE IF NOT EXISTS profiles (
	user_id BIGINT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	address TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS processed_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates the tables and indexes if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
