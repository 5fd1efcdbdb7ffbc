package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para Order.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	// Update persiste status, porcentaje, documento de envío y fechas.
	Update(ctx context.Context, order *entity.Order) error
}

// OrderItemRepository define el puerto de persistencia para OrderItem.
type OrderItemRepository interface {
	Create(ctx context.Context, item *entity.OrderItem) error
	GetByID(ctx context.Context, id string) (*entity.OrderItem, error)
	UpdateShipment(ctx context.Context, item *entity.OrderItem) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderItem, error)
}
