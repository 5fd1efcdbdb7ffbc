package backorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// Queue cola de backorders (UnshippedItem): created -> authorized -> shipped.
// La cola no valida precondiciones de negocio al marcar envíos; eso es del caller
// (fulfillment.Service / orders.Machine).
type Queue struct {
	txRunner ports.TxRunner
}

// NewQueue construye la cola de backorders.
func NewQueue(txRunner ports.TxRunner) *Queue {
	return &Queue{txRunner: txRunner}
}

// CreateInTx registra el faltante de una línea. customer puede ser nil: el backorder se crea
// igual, sin referencia a cliente.
func (q *Queue) CreateInTx(
	ctx context.Context,
	repos repository.Repos,
	order *entity.Order,
	item *entity.OrderItem,
	quantity int,
	customer *entity.Customer,
) (*entity.UnshippedItem, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	bo := &entity.UnshippedItem{
		ID:                  uuid.New().String(),
		OrderID:             order.ID,
		OrderItemID:         item.ID,
		ProductID:           item.ProductID,
		Quantity:            quantity,
		CustomerName:        order.CustomerName,
		OriginalOrderNumber: order.OrderNumber,
		CreatedAt:           time.Now().UTC(),
	}
	if customer != nil {
		id := customer.ID
		bo.CustomerID = &id
	}
	if err := repos.UnshippedItems.Create(ctx, bo); err != nil {
		return nil, err
	}
	return bo, nil
}

// Authorize marca como autorizados todos los ids. Re-autorizar es un no-op seguro
// (se vuelve a sellar authorizedBy/authorizedAt). Ids desconocidos se ignoran.
func (q *Queue) Authorize(ctx context.Context, ids []string, userID string) error {
	ids = UniqueIDs(ids)
	if len(ids) == 0 || userID == "" {
		return domain.ErrInvalidInput
	}
	return q.txRunner.Run(ctx, "authorize_unshipped", func(ctx context.Context, repos repository.Repos) error {
		_, err := q.AuthorizeInTx(ctx, repos, ids, userID)
		return err
	})
}

// AuthorizeInTx versión transaccional de Authorize.
func (q *Queue) AuthorizeInTx(ctx context.Context, repos repository.Repos, ids []string, userID string) (int, error) {
	return repos.UnshippedItems.Authorize(ctx, ids, userID, time.Now().UTC())
}

// MarkShippedInTx marca los ids como enviados en newOrderID. Solo afecta filas autorizadas
// y aún no enviadas; devuelve cuántas cambiaron.
func (q *Queue) MarkShippedInTx(ctx context.Context, repos repository.Repos, ids []string, newOrderID string) (int, error) {
	return repos.UnshippedItems.MarkShipped(ctx, ids, newOrderID, time.Now().UTC())
}

// ListForAuthorization devuelve los backorders no autorizados y no enviados, más antiguos primero.
func (q *Queue) ListForAuthorization(ctx context.Context) ([]*entity.UnshippedItem, error) {
	var list []*entity.UnshippedItem
	err := q.txRunner.Run(ctx, "list_unshipped_for_authorization", func(ctx context.Context, repos repository.Repos) error {
		var err error
		list, err = repos.UnshippedItems.ListPendingAuthorization(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UniqueIDs elimina vacíos y duplicados conservando el orden.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
