package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// Trail registro append-only de mutaciones de stock y de pedidos. Las escrituras se hacen
// con los repos de la transacción del caller: si la fila de auditoría falla, la mutación
// principal hace rollback con ella.
type Trail struct {
	txRunner ports.TxRunner
}

// NewTrail construye el Audit Trail.
func NewTrail(txRunner ports.TxRunner) *Trail {
	return &Trail{txRunner: txRunner}
}

// InventoryEntry datos de una mutación de stock.
type InventoryEntry struct {
	ProductID        string
	UserID           string
	ChangeType       string
	PreviousQuantity int
	NewQuantity      int
	Reference        *string
	Notes            *string
}

// OrderEntry datos de una mutación de pedido o línea de pedido.
type OrderEntry struct {
	OrderID        string
	UserID         string
	Action         string
	Changes        map[string]any
	PreviousValues map[string]any
	Notes          *string
}

// RecordInventoryChange inserta una fila InventoryChange. QuantityChanged = New - Previous.
func (t *Trail) RecordInventoryChange(ctx context.Context, repos repository.Repos, e InventoryEntry) (*entity.InventoryChange, error) {
	change := &entity.InventoryChange{
		ID:               uuid.New().String(),
		ProductID:        e.ProductID,
		UserID:           e.UserID,
		ChangeType:       e.ChangeType,
		PreviousQuantity: e.PreviousQuantity,
		NewQuantity:      e.NewQuantity,
		QuantityChanged:  e.NewQuantity - e.PreviousQuantity,
		Reference:        e.Reference,
		Notes:            e.Notes,
		Timestamp:        time.Now().UTC(),
	}
	if err := repos.InventoryChanges.Create(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

// RecordOrderChange inserta una fila OrderChangelog. Changes y PreviousValues vacíos por defecto.
func (t *Trail) RecordOrderChange(ctx context.Context, repos repository.Repos, e OrderEntry) (*entity.OrderChangelog, error) {
	changes := e.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	prev := e.PreviousValues
	if prev == nil {
		prev = map[string]any{}
	}
	entry := &entity.OrderChangelog{
		ID:             uuid.New().String(),
		OrderID:        e.OrderID,
		UserID:         e.UserID,
		Action:         e.Action,
		Changes:        changes,
		PreviousValues: prev,
		Notes:          e.Notes,
		Timestamp:      time.Now().UTC(),
	}
	if err := repos.OrderChangelogs.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// InventoryChanges lista los cambios de inventario; productID nil = todos los productos.
func (t *Trail) InventoryChanges(ctx context.Context, productID *string) ([]*entity.InventoryChange, error) {
	var list []*entity.InventoryChange
	err := t.txRunner.Run(ctx, "get_inventory_changes", func(ctx context.Context, repos repository.Repos) error {
		var err error
		list, err = repos.InventoryChanges.List(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// OrderChangelogs lista el historial de un pedido en orden cronológico.
func (t *Trail) OrderChangelogs(ctx context.Context, orderID string) ([]*entity.OrderChangelog, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	var list []*entity.OrderChangelog
	err := t.txRunner.Run(ctx, "get_order_changelogs", func(ctx context.Context, repos repository.Repos) error {
		var err error
		list, err = repos.OrderChangelogs.ListByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
