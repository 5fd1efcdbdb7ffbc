package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

var (
	_ repository.OrderRepository     = (*OrderRepo)(nil)
	_ repository.OrderItemRepository = (*OrderItemRepo)(nil)
)

const orderColumns = `id, order_number, status, customer_name, order_date, percentage_shipped,
	has_shipping_document, shipping_document, actual_shipping_date, last_updated, created_by`

// OrderRepo implementación de OrderRepository (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Create persiste la cabecera del pedido (las líneas van por OrderItemRepo).
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	doc, err := marshalDoc(o.ShippingDocument)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.OrderNumber, o.Status, o.CustomerName, o.OrderDate, o.PercentageShipped,
		o.HasShippingDocument, doc, o.ActualShippingDate, o.LastUpdated, o.CreatedBy,
	)
	if err != nil {
		return writeErr("insert order", err)
	}
	return nil
}

// GetByID obtiene un pedido por ID (sin líneas).
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, "get order", `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del pedido hasta el fin de la transacción.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, "lock order", `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) getOne(ctx context.Context, op, query, id string) (*entity.Order, error) {
	var o entity.Order
	var doc []byte
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.Status, &o.CustomerName, &o.OrderDate, &o.PercentageShipped,
		&o.HasShippingDocument, &doc, &o.ActualShippingDate, &o.LastUpdated, &o.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(doc) > 0 {
		o.ShippingDocument = &entity.ShippingDocument{}
		if err := json.Unmarshal(doc, o.ShippingDocument); err != nil {
			return nil, fmt.Errorf("%s: decode shipping_document: %w", op, err)
		}
	}
	return &o, nil
}

// Update persiste status, porcentaje, documento de envío y fechas.
func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) error {
	doc, err := marshalDoc(o.ShippingDocument)
	if err != nil {
		return err
	}
	cmd, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $2, percentage_shipped = $3, has_shipping_document = $4,
			shipping_document = $5, actual_shipping_date = $6, last_updated = $7
		WHERE id = $1`,
		o.ID, o.Status, o.PercentageShipped, o.HasShippingDocument, doc, o.ActualShippingDate, o.LastUpdated,
	)
	if err != nil {
		return writeErr("update order", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("pedido", o.ID)
	}
	return nil
}

func marshalDoc(doc *entity.ShippingDocument) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode shipping_document: %w", err)
	}
	return b, nil
}

const orderItemColumns = `id, order_id, product_id, quantity, shipped_quantity, shipping_status, created_at, updated_at`

// OrderItemRepo implementación de OrderItemRepository (usable con pool o tx).
type OrderItemRepo struct {
	q Querier
}

// NewOrderItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderItemRepository(q Querier) *OrderItemRepo {
	return &OrderItemRepo{q: q}
}

// Create persiste una línea de pedido.
func (r *OrderItemRepo) Create(ctx context.Context, it *entity.OrderItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_items (`+orderItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.ShippedQuantity, it.ShippingStatus, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert order item", err)
	}
	return nil
}

// GetByID obtiene una línea por ID.
func (r *OrderItemRepo) GetByID(ctx context.Context, id string) (*entity.OrderItem, error) {
	it, err := scanOrderItem(r.q.QueryRow(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

// UpdateShipment persiste shipped_quantity y shipping_status.
func (r *OrderItemRepo) UpdateShipment(ctx context.Context, it *entity.OrderItem) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE order_items SET shipped_quantity = $2, shipping_status = $3, updated_at = $4
		WHERE id = $1`, it.ID, it.ShippedQuantity, it.ShippingStatus, it.UpdatedAt)
	if err != nil {
		return writeErr("update order item", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("línea de pedido", it.ID)
	}
	return nil
}

// ListByOrder líneas del pedido en orden de creación.
func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func scanOrderItem(row pgx.Row) (*entity.OrderItem, error) {
	var it entity.OrderItem
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.ShippedQuantity,
		&it.ShippingStatus, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}
