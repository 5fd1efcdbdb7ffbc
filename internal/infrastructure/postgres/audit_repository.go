package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

var (
	_ repository.InventoryChangeRepository = (*InventoryChangeRepo)(nil)
	_ repository.OrderChangelogRepository  = (*OrderChangelogRepo)(nil)
)

// InventoryChangeRepo tabla append-only inventory_changes: solo INSERT y SELECT.
type InventoryChangeRepo struct {
	q Querier
}

// NewInventoryChangeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryChangeRepository(q Querier) *InventoryChangeRepo {
	return &InventoryChangeRepo{q: q}
}

// Create inserta una fila de auditoría de stock.
func (r *InventoryChangeRepo) Create(ctx context.Context, c *entity.InventoryChange) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_changes (id, product_id, user_id, change_type, previous_quantity,
			new_quantity, quantity_changed, reference, notes, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.ProductID, c.UserID, c.ChangeType, c.PreviousQuantity,
		c.NewQuantity, c.QuantityChanged, c.Reference, c.Notes, c.Timestamp,
	)
	if err != nil {
		return writeErr("insert inventory change", err)
	}
	return nil
}

// List orden cronológico; productID nil = todos.
func (r *InventoryChangeRepo) List(ctx context.Context, productID *string) ([]*entity.InventoryChange, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, user_id, change_type, previous_quantity, new_quantity,
			quantity_changed, reference, notes, "timestamp"
		FROM inventory_changes
		WHERE $1::text IS NULL OR product_id = $1
		ORDER BY "timestamp", id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list inventory changes: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryChange
	for rows.Next() {
		var c entity.InventoryChange
		if err := rows.Scan(&c.ID, &c.ProductID, &c.UserID, &c.ChangeType, &c.PreviousQuantity,
			&c.NewQuantity, &c.QuantityChanged, &c.Reference, &c.Notes, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan inventory change: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// OrderChangelogRepo tabla append-only order_changelogs: solo INSERT y SELECT.
type OrderChangelogRepo struct {
	q Querier
}

// NewOrderChangelogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderChangelogRepository(q Querier) *OrderChangelogRepo {
	return &OrderChangelogRepo{q: q}
}

// Create inserta una fila de changelog; changes y previous_values van como JSONB.
func (r *OrderChangelogRepo) Create(ctx context.Context, e *entity.OrderChangelog) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	prev, err := json.Marshal(e.PreviousValues)
	if err != nil {
		return fmt.Errorf("encode previous_values: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO order_changelogs (id, order_id, user_id, action, changes, previous_values, notes, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrderID, e.UserID, e.Action, changes, prev, e.Notes, e.Timestamp,
	)
	if err != nil {
		return writeErr("insert order changelog", err)
	}
	return nil
}

// ListByOrder historial del pedido en orden cronológico.
func (r *OrderChangelogRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderChangelog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, user_id, action, changes, previous_values, notes, "timestamp"
		FROM order_changelogs WHERE order_id = $1
		ORDER BY "timestamp", id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order changelogs: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderChangelog
	for rows.Next() {
		var e entity.OrderChangelog
		var changes, prev []byte
		if err := rows.Scan(&e.ID, &e.OrderID, &e.UserID, &e.Action, &changes, &prev, &e.Notes, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan order changelog: %w", err)
		}
		e.Changes = map[string]any{}
		e.PreviousValues = map[string]any{}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, fmt.Errorf("decode changes: %w", err)
			}
		}
		if len(prev) > 0 {
			if err := json.Unmarshal(prev, &e.PreviousValues); err != nil {
				return nil, fmt.Errorf("decode previous_values: %w", err)
			}
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
