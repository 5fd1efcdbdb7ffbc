package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

// InventoryChangeRepository puerto append-only para InventoryChange.
type InventoryChangeRepository interface {
	Create(ctx context.Context, change *entity.InventoryChange) error
	// List devuelve los cambios (de un producto si productID != nil), en orden cronológico.
	List(ctx context.Context, productID *string) ([]*entity.InventoryChange, error)
}

// OrderChangelogRepository puerto append-only para OrderChangelog.
type OrderChangelogRepository interface {
	Create(ctx context.Context, entry *entity.OrderChangelog) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderChangelog, error)
}
