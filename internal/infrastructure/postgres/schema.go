package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migration paso de esquema idempotente. Las versiones aplicadas quedan en schema_migrations.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "products_customers", `
CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	sku               TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL,
	current_stock     INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
	min_stock_level   INTEGER NOT NULL DEFAULT 0 CHECK (min_stock_level >= 0),
	last_stock_update TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS customers (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_customers_normalized_name ON customers (normalized_name, created_at);`},
	{2, "orders", `
CREATE TABLE IF NOT EXISTS orders (
	id                    TEXT PRIMARY KEY,
	order_number          TEXT NOT NULL UNIQUE,
	status                TEXT NOT NULL CHECK (status IN ('pending','picked','partially_shipped','shipped','cancelled')),
	customer_name         TEXT NOT NULL,
	order_date            TIMESTAMPTZ NOT NULL,
	percentage_shipped    NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (percentage_shipped BETWEEN 0 AND 100),
	has_shipping_document BOOLEAN NOT NULL DEFAULT FALSE,
	shipping_document     JSONB,
	actual_shipping_date  TIMESTAMPTZ,
	last_updated          TIMESTAMPTZ NOT NULL,
	created_by            TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	id               TEXT PRIMARY KEY,
	order_id         TEXT NOT NULL REFERENCES orders(id),
	product_id       TEXT NOT NULL REFERENCES products(id),
	quantity         INTEGER NOT NULL CHECK (quantity > 0),
	shipped_quantity INTEGER NOT NULL DEFAULT 0 CHECK (shipped_quantity >= 0 AND shipped_quantity <= quantity),
	shipping_status  TEXT NOT NULL CHECK (shipping_status IN ('pending','fulfilled','partial')),
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id, created_at);`},
	{3, "unshipped_items", `
CREATE TABLE IF NOT EXISTS unshipped_items (
	id                    TEXT PRIMARY KEY,
	order_id              TEXT NOT NULL REFERENCES orders(id),
	order_item_id         TEXT NOT NULL REFERENCES order_items(id),
	product_id            TEXT NOT NULL REFERENCES products(id),
	quantity              INTEGER NOT NULL CHECK (quantity > 0),
	customer_name         TEXT NOT NULL,
	customer_id           TEXT REFERENCES customers(id),
	original_order_number TEXT NOT NULL,
	authorized            BOOLEAN NOT NULL DEFAULT FALSE,
	authorized_by         TEXT,
	authorized_at         TIMESTAMPTZ,
	shipped               BOOLEAN NOT NULL DEFAULT FALSE,
	shipped_in_order_id   TEXT REFERENCES orders(id),
	shipped_at            TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL,
	CHECK (NOT shipped OR authorized)
);
CREATE INDEX IF NOT EXISTS idx_unshipped_pending ON unshipped_items (created_at) WHERE NOT authorized AND NOT shipped;
CREATE INDEX IF NOT EXISTS idx_unshipped_order ON unshipped_items (order_id) WHERE NOT shipped;`},
	{4, "audit_trail", `
CREATE TABLE IF NOT EXISTS inventory_changes (
	id                TEXT PRIMARY KEY,
	product_id        TEXT NOT NULL REFERENCES products(id),
	user_id           TEXT NOT NULL,
	change_type       TEXT NOT NULL CHECK (change_type IN ('stock_replenishment','manual_adjustment','order_consumption')),
	previous_quantity INTEGER NOT NULL,
	new_quantity      INTEGER NOT NULL CHECK (new_quantity >= 0),
	quantity_changed  INTEGER NOT NULL CHECK (quantity_changed = new_quantity - previous_quantity),
	reference         TEXT,
	notes             TEXT,
	"timestamp"       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inventory_changes_product ON inventory_changes (product_id, "timestamp");
CREATE TABLE IF NOT EXISTS order_changelogs (
	id              TEXT PRIMARY KEY,
	order_id        TEXT NOT NULL REFERENCES orders(id),
	user_id         TEXT NOT NULL,
	action          TEXT NOT NULL CHECK (action IN ('create','update','status_change','error_report')),
	changes         JSONB NOT NULL DEFAULT '{}',
	previous_values JSONB NOT NULL DEFAULT '{}',
	notes           TEXT,
	"timestamp"     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_changelogs_order ON order_changelogs (order_id, "timestamp");`},
}

// Migrate aplica las migraciones pendientes, cada una en su propia transacción reintentable.
// Devuelve las versiones aplicadas en esta llamada.
func (g *Gateway) Migrate(ctx context.Context) ([]int, error) {
	err := g.WithRetry(ctx, "migrate_bootstrap", 0, func(ctx context.Context) error {
		return g.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
				version    INTEGER PRIMARY KEY,
				name       TEXT NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("crear schema_migrations: %w", err)
	}

	var applied []int
	for _, m := range migrations {
		ran := false
		err := g.WithRetry(ctx, "migrate", 0, func(ctx context.Context) error {
			ran = false
			return g.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
				// Serializa migradores concurrentes.
				if _, err := tx.Exec(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`); err != nil {
					return err
				}
				var exists bool
				if err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
				).Scan(&exists); err != nil {
					return err
				}
				if exists {
					return nil
				}
				if _, err := tx.Exec(ctx, m.sql); err != nil {
					return err
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
				); err != nil {
					return err
				}
				ran = true
				return nil
			})
		})
		if err != nil {
			return applied, fmt.Errorf("migración %d (%s): %w", m.version, m.name, err)
		}
		if ran {
			g.log.Info().Int("version", m.version).Str("name", m.name).Msg("migración aplicada")
			applied = append(applied, m.version)
		}
	}
	return applied, nil
}
