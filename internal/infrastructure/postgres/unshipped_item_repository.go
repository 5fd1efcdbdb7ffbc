package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

var _ repository.UnshippedItemRepository = (*UnshippedItemRepo)(nil)

const unshippedColumns = `id, order_id, order_item_id, product_id, quantity, customer_name, customer_id,
	original_order_number, authorized, authorized_by, authorized_at, shipped, shipped_in_order_id,
	shipped_at, created_at`

// UnshippedItemRepo implementación de UnshippedItemRepository (usable con pool o tx).
type UnshippedItemRepo struct {
	q Querier
}

// NewUnshippedItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUnshippedItemRepository(q Querier) *UnshippedItemRepo {
	return &UnshippedItemRepo{q: q}
}

// Create persiste un backorder recién creado (no autorizado, no enviado).
func (r *UnshippedItemRepo) Create(ctx context.Context, bo *entity.UnshippedItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO unshipped_items (`+unshippedColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		bo.ID, bo.OrderID, bo.OrderItemID, bo.ProductID, bo.Quantity, bo.CustomerName, bo.CustomerID,
		bo.OriginalOrderNumber, bo.Authorized, bo.AuthorizedBy, bo.AuthorizedAt, bo.Shipped,
		bo.ShippedInOrderID, bo.ShippedAt, bo.CreatedAt,
	)
	if err != nil {
		return writeErr("insert unshipped item", err)
	}
	return nil
}

// ListByIDs devuelve los backorders existentes entre ids (bloqueados para la transacción).
func (r *UnshippedItemRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.UnshippedItem, error) {
	return r.list(ctx, "list unshipped items", `
		SELECT `+unshippedColumns+` FROM unshipped_items
		WHERE id = ANY($1) ORDER BY created_at, id FOR UPDATE`, ids)
}

// Authorize marca authorized sin mirar el estado previo.
func (r *UnshippedItemRepo) Authorize(ctx context.Context, ids []string, userID string, at time.Time) (int, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE unshipped_items SET authorized = TRUE, authorized_by = $2, authorized_at = $3
		WHERE id = ANY($1)`, ids, userID, at)
	if err != nil {
		return 0, writeErr("authorize unshipped items", err)
	}
	return int(cmd.RowsAffected()), nil
}

// MarkShipped solo toca filas autorizadas y aún no enviadas.
func (r *UnshippedItemRepo) MarkShipped(ctx context.Context, ids []string, shippedInOrderID string, at time.Time) (int, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE unshipped_items SET shipped = TRUE, shipped_in_order_id = $2, shipped_at = $3
		WHERE id = ANY($1) AND authorized AND NOT shipped`, ids, shippedInOrderID, at)
	if err != nil {
		return 0, writeErr("mark unshipped items shipped", err)
	}
	return int(cmd.RowsAffected()), nil
}

// ListPendingAuthorization cola de revisión manual, más antiguos primero.
func (r *UnshippedItemRepo) ListPendingAuthorization(ctx context.Context) ([]*entity.UnshippedItem, error) {
	return r.list(ctx, "list pending authorization", `
		SELECT `+unshippedColumns+` FROM unshipped_items
		WHERE NOT authorized AND NOT shipped ORDER BY created_at, id`)
}

// ListOpenByOrder backorders aún no enviados del pedido.
func (r *UnshippedItemRepo) ListOpenByOrder(ctx context.Context, orderID string) ([]*entity.UnshippedItem, error) {
	return r.list(ctx, "list open unshipped items", `
		SELECT `+unshippedColumns+` FROM unshipped_items
		WHERE order_id = $1 AND NOT shipped ORDER BY created_at, id FOR UPDATE`, orderID)
}

// ListShippedInOrder backorders conciliados contra orderID.
func (r *UnshippedItemRepo) ListShippedInOrder(ctx context.Context, orderID string) ([]*entity.UnshippedItem, error) {
	return r.list(ctx, "list unshipped items shipped in order", `
		SELECT `+unshippedColumns+` FROM unshipped_items
		WHERE shipped AND shipped_in_order_id = $1 ORDER BY created_at, id`, orderID)
}

func (r *UnshippedItemRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.UnshippedItem, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.UnshippedItem
	for rows.Next() {
		bo, err := scanUnshipped(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unshipped item: %w", err)
		}
		list = append(list, bo)
	}
	return list, rows.Err()
}

func scanUnshipped(row pgx.Row) (*entity.UnshippedItem, error) {
	var bo entity.UnshippedItem
	if err := row.Scan(&bo.ID, &bo.OrderID, &bo.OrderItemID, &bo.ProductID, &bo.Quantity, &bo.CustomerName,
		&bo.CustomerID, &bo.OriginalOrderNumber, &bo.Authorized, &bo.AuthorizedBy, &bo.AuthorizedAt,
		&bo.Shipped, &bo.ShippedInOrderID, &bo.ShippedAt, &bo.CreatedAt); err != nil {
		return nil, err
	}
	return &bo, nil
}
