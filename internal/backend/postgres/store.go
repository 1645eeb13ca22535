// Package postgres implements the external store on a Postgres database using lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

// Schema creates the two tables the storefront reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	price        NUMERIC(10,2) NOT NULL,
	retail_price NUMERIC(10,2),
	image_url    TEXT NOT NULL DEFAULT '',
	inventory    JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE TABLE IF NOT EXISTS waitlist (
	id           BIGSERIAL PRIMARY KEY,
	product_id   BIGINT NOT NULL,
	product_name TEXT NOT NULL,
	size         TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const (
	listProductsSQL = `SELECT id, name, description, price, retail_price, image_url, inventory
FROM products ORDER BY id ASC LIMIT $1 OFFSET $2`
	countProductsSQL   = `SELECT count(*) FROM products`
	insertWaitlistSQL  = `INSERT INTO waitlist (product_id, product_name, size, email, phone) VALUES ($1, $2, $3, $4, $5)`
	upsertProductSQL   = `INSERT INTO products (id, name, description, price, retail_price, image_url, inventory)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
	price = EXCLUDED.price, retail_price = EXCLUDED.retail_price, image_url = EXCLUDED.image_url,
	inventory = EXCLUDED.inventory`
)

type Store struct {
	db *sql.DB
}

// Open connects with the given lib/pq DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return &Store{db: db}, nil
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return errors.Wrap(err, "migrate")
}

func (s *Store) ListProducts(ctx context.Context, page model.Page) ([]model.Product, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, countProductsSQL).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(backend.ErrUnavailable, err.Error())
	}

	var limit sql.NullInt64
	if page.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(page.Limit), Valid: true}
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var (
			p   model.Product
			inv []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.RetailPrice, &p.ImageURL, &inv); err != nil {
			return nil, 0, errors.Wrap(err, "scan product")
		}
		if err := json.Unmarshal(inv, &p.Inventory); err != nil {
			return nil, 0, errors.Wrapf(err, "decode inventory of product %d", p.ID)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return out, total, nil
}

func (s *Store) InsertWaitlist(ctx context.Context, e model.WaitlistEntry) error {
	var phone sql.NullString
	if e.Phone != nil {
		phone = sql.NullString{String: *e.Phone, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, insertWaitlistSQL, e.ProductID, e.ProductName, e.Size, e.Email, phone); err != nil {
		return errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return nil
}

// Upsert writes a product row; used for seeding.
func (s *Store) Upsert(ctx context.Context, p model.Product) error {
	inv, err := json.Marshal(p.Inventory)
	if err != nil {
		return errors.Wrap(err, "encode inventory")
	}
	_, err = s.db.ExecContext(ctx, upsertProductSQL, p.ID, p.Name, p.Description, p.Price, p.RetailPrice, p.ImageURL, inv)
	return errors.Wrapf(err, "upsert product %d", p.ID)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
