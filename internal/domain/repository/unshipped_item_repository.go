package repository

import (
	"context"
	"time"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

// UnshippedItemRepository define el puerto de persistencia de la cola de backorders.
// No expone borrado.
type UnshippedItemRepository interface {
	Create(ctx context.Context, item *entity.UnshippedItem) error
	ListByIDs(ctx context.Context, ids []string) ([]*entity.UnshippedItem, error)
	// Authorize marca authorized=true sin mirar el estado previo; devuelve filas afectadas.
	Authorize(ctx context.Context, ids []string, userID string, at time.Time) (int, error)
	// MarkShipped solo afecta filas autorizadas y no enviadas; devuelve filas afectadas.
	MarkShipped(ctx context.Context, ids []string, shippedInOrderID string, at time.Time) (int, error)
	// ListPendingAuthorization devuelve authorized=false AND shipped=false, más antiguas primero.
	ListPendingAuthorization(ctx context.Context) ([]*entity.UnshippedItem, error)
	ListOpenByOrder(ctx context.Context, orderID string) ([]*entity.UnshippedItem, error)
	// ListShippedInOrder backorders ya conciliados contra el pedido de reemplazo orderID.
	ListShippedInOrder(ctx context.Context, orderID string) ([]*entity.UnshippedItem, error)
}
