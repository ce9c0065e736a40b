package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type dialect struct {
	driver    string
	bind      int
	id        string
	money     string
	percent   string
	timestamp string
	boolean   string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return dialect{
			driver:    driver,
			bind:      sqlx.DOLLAR,
			id:        "BIGSERIAL PRIMARY KEY",
			money:     "NUMERIC(18,2)",
			percent:   "NUMERIC(7,4)",
			timestamp: "TIMESTAMPTZ",
			boolean:   "BOOLEAN",
		}, nil
	case DriverSQLite:
		return dialect{
			driver:    driver,
			bind:      sqlx.QUESTION,
			id:        "INTEGER PRIMARY KEY AUTOINCREMENT",
			money:     "TEXT",
			percent:   "TEXT",
			timestamp: "TIMESTAMP",
			boolean:   "INTEGER",
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (d dialect) rebind(query string) string {
	return sqlx.Rebind(d.bind, query)
}

// expand fills the column type placeholders used in schemaStatements.
func (d dialect) expand(stmt string) string {
	return strings.NewReplacer(
		"{{id}}", d.id,
		"{{money}}", d.money,
		"{{percent}}", d.percent,
		"{{timestamp}}", d.timestamp,
		"{{bool}}", d.boolean,
	).Replace(stmt)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active {{bool}} NOT NULL,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id {{id}},
		name TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id {{id}},
		name TEXT NOT NULL,
		barcode TEXT UNIQUE,
		image_url TEXT,
		category_id BIGINT REFERENCES categories(id),
		brand_id BIGINT REFERENCES brands(id),
		supplier_id BIGINT REFERENCES suppliers(id),
		unit_price {{money}} NOT NULL,
		discount_percentage {{percent}} NOT NULL,
		reorder_level INTEGER NOT NULL DEFAULT 0,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_batches (
		id {{id}},
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		expiration_date {{timestamp}},
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_batches_product ON product_batches (product_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id {{id}},
		batch_id BIGINT NOT NULL REFERENCES product_batches(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL,
		type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		reference_number TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		user_id BIGINT NOT NULL,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id {{id}},
		invoice_number TEXT NOT NULL UNIQUE,
		user_id BIGINT NOT NULL,
		sale_date {{timestamp}} NOT NULL,
		payment_method TEXT NOT NULL,
		cash_received {{money}},
		change_amount {{money}},
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		subtotal_before_discount {{money}} NOT NULL,
		total_discount_amount {{money}} NOT NULL,
		total_discount_percentage {{percent}} NOT NULL,
		subtotal_after_discount {{money}} NOT NULL,
		total_vat_amount {{money}} NOT NULL,
		vat_percentage {{percent}} NOT NULL,
		final_total {{money}} NOT NULL,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sale_lines (
		id {{id}},
		sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		original_unit_price {{money}} NOT NULL,
		unit_price {{money}} NOT NULL,
		unit_price_after_discount {{money}} NOT NULL,
		discount_percentage {{percent}} NOT NULL,
		vat_percentage {{percent}} NOT NULL,
		line_subtotal_before_discount {{money}} NOT NULL,
		line_discount_amount {{money}} NOT NULL,
		line_subtotal_after_discount {{money}} NOT NULL,
		line_vat_amount {{money}} NOT NULL,
		line_final_total {{money}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_lines_sale ON sale_lines (sale_id)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id {{id}},
		invoice_number TEXT NOT NULL UNIQUE,
		sale_id BIGINT NOT NULL UNIQUE REFERENCES sales(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		created_at {{timestamp}} NOT NULL
	)`,
}

// bootstrap creates missing tables. It is not a migration tool: existing
// tables are left untouched.
func (s *Store) bootstrap(ctx context.Context) error {
	if s.dialect.driver == DriverSQLite {
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				return err
			}
		}
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, s.dialect.expand(stmt)); err != nil {
			return err
		}
	}
	return nil
}
