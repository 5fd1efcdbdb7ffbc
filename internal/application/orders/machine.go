package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-engine/internal/application/audit"
	"github.com/jhoicas/fulfillment-engine/internal/application/backorder"
	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// transitions estados destino permitidos por estado origen. shipped y cancelled son terminales.
// No se exigen estados intermedios: pending puede pasar directo a shipped.
var transitions = map[string][]string{
	entity.OrderStatusPending: {
		entity.OrderStatusPicked, entity.OrderStatusPartiallyShipped,
		entity.OrderStatusShipped, entity.OrderStatusCancelled,
	},
	entity.OrderStatusPicked: {
		entity.OrderStatusPartiallyShipped, entity.OrderStatusShipped, entity.OrderStatusCancelled,
	},
	entity.OrderStatusPartiallyShipped: {
		entity.OrderStatusShipped,
	},
}

// CanTransition indica si from -> to está permitido.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Machine máquina de estados de pedidos: dueña de Order.Status y Order.PercentageShipped.
type Machine struct {
	txRunner ports.TxRunner
	trail    *audit.Trail
	queue    *backorder.Queue
}

// NewMachine construye la máquina de estados.
func NewMachine(txRunner ports.TxRunner, trail *audit.Trail, queue *backorder.Queue) *Machine {
	return &Machine{txRunner: txRunner, trail: trail, queue: queue}
}

// UpdateStatus cambia el estado del pedido y registra old/new en el changelog. Al pasar a
// shipped con doc, adjunta el documento de envío.
func (m *Machine) UpdateStatus(ctx context.Context, orderID, newStatus string, doc *entity.ShippingDocument, actorID string) (*entity.Order, error) {
	if orderID == "" || actorID == "" || !entity.IsValidOrderStatus(newStatus) {
		return nil, domain.ErrInvalidInput
	}
	var order *entity.Order
	err := m.txRunner.Run(ctx, "update_order_status", func(ctx context.Context, repos repository.Repos) error {
		o, err := lockOrder(ctx, repos, orderID)
		if err != nil {
			return err
		}
		oldStatus := o.Status
		if !CanTransition(oldStatus, newStatus) {
			return &domain.TransitionError{From: oldStatus, To: newStatus}
		}

		changes := map[string]any{"status": newStatus}
		prev := map[string]any{"status": oldStatus}
		if newStatus == entity.OrderStatusShipped && doc != nil && doc.Number != "" {
			prev["has_shipping_document"] = o.HasShippingDocument
			o.HasShippingDocument = true
			o.ShippingDocument = doc
			changes["has_shipping_document"] = true
			changes["shipping_document_number"] = doc.Number
		}
		o.Status = newStatus
		o.LastUpdated = time.Now().UTC()
		if err := repos.Orders.Update(ctx, o); err != nil {
			return err
		}
		if _, err := m.trail.RecordOrderChange(ctx, repos, audit.OrderEntry{
			OrderID:        o.ID,
			UserID:         actorID,
			Action:         entity.OrderActionStatusChange,
			Changes:        changes,
			PreviousValues: prev,
		}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteShipment cierra el pedido como shipped al 100%, concilia en la misma transacción
// los backorders aún abiertos del pedido (autorizándolos a nombre del actor si hacía falta)
// y lleva cada línea a ShippedQuantity = Quantity.
func (m *Machine) CompleteShipment(ctx context.Context, orderID, actorID string) (bool, error) {
	if orderID == "" || actorID == "" {
		return false, domain.ErrInvalidInput
	}
	err := m.txRunner.Run(ctx, "complete_shipment", func(ctx context.Context, repos repository.Repos) error {
		o, err := lockOrder(ctx, repos, orderID)
		if err != nil {
			return err
		}
		oldStatus := o.Status
		if !CanTransition(oldStatus, entity.OrderStatusShipped) {
			return &domain.TransitionError{From: oldStatus, To: entity.OrderStatusShipped}
		}

		open, err := repos.UnshippedItems.ListOpenByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		var openIDs, unauthorized []string
		for _, bo := range open {
			openIDs = append(openIDs, bo.ID)
			if !bo.Authorized {
				unauthorized = append(unauthorized, bo.ID)
			}
		}
		if len(unauthorized) > 0 {
			if _, err := m.queue.AuthorizeInTx(ctx, repos, unauthorized, actorID); err != nil {
				return err
			}
		}
		if len(openIDs) > 0 {
			n, err := m.queue.MarkShippedInTx(ctx, repos, openIDs, o.ID)
			if err != nil {
				return err
			}
			if n != len(openIDs) {
				return domain.ErrConflict
			}
		}

		items, err := repos.OrderItems.ListByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.ShippedQuantity == it.Quantity && it.ShippingStatus == entity.ShippingStatusFulfilled {
				continue
			}
			it.ShippedQuantity = it.Quantity
			it.ShippingStatus = entity.ShippingStatusFulfilled
			it.UpdatedAt = time.Now().UTC()
			if err := repos.OrderItems.UpdateShipment(ctx, it); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		oldPct := o.PercentageShipped
		o.Status = entity.OrderStatusShipped
		o.PercentageShipped = hundred
		o.ActualShippingDate = &now
		o.LastUpdated = now
		if err := repos.Orders.Update(ctx, o); err != nil {
			return err
		}
		changes := map[string]any{
			"status":               entity.OrderStatusShipped,
			"percentage_shipped":   hundred.StringFixed(2),
			"actual_shipping_date": now,
		}
		if len(openIDs) > 0 {
			changes["reconciled_backorders"] = openIDs
		}
		_, err = m.trail.RecordOrderChange(ctx, repos, audit.OrderEntry{
			OrderID: o.ID,
			UserID:  actorID,
			Action:  entity.OrderActionStatusChange,
			Changes: changes,
			PreviousValues: map[string]any{
				"status":             oldStatus,
				"percentage_shipped": oldPct.StringFixed(2),
			},
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecalculateProgressInTx recalcula PercentageShipped a partir de las líneas y lo persiste si
// cambió. No escribe changelog: el caller lo incluye en su propia fila.
func (m *Machine) RecalculateProgressInTx(ctx context.Context, repos repository.Repos, order *entity.Order) (from, to decimal.Decimal, changed bool, err error) {
	items, err := repos.OrderItems.ListByOrder(ctx, order.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	from = order.PercentageShipped
	to = Progress(items)
	if from.Equal(to) {
		return from, to, false, nil
	}
	order.PercentageShipped = to
	order.LastUpdated = time.Now().UTC()
	if err := repos.Orders.Update(ctx, order); err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	return from, to, true, nil
}

// Progress porcentaje enviado (0..100, 2 decimales) sobre el total solicitado.
func Progress(items []*entity.OrderItem) decimal.Decimal {
	var requested, shipped int64
	for _, it := range items {
		requested += int64(it.Quantity)
		shipped += int64(it.ShippedQuantity)
	}
	if requested == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(shipped).Mul(hundred).Div(decimal.NewFromInt(requested)).Round(2)
}

// Get devuelve el pedido con sus líneas.
func (m *Machine) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	var order *entity.Order
	err := m.txRunner.Run(ctx, "get_order", func(ctx context.Context, repos repository.Repos) error {
		o, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.NotFound("pedido", orderID)
		}
		o.Items, err = repos.OrderItems.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func lockOrder(ctx context.Context, repos repository.Repos, orderID string) (*entity.Order, error) {
	o, err := repos.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.NotFound("pedido", orderID)
	}
	return o, nil
}
