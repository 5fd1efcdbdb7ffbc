package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/audit"
	"github.com/jhoicas/fulfillment-engine/internal/application/backorder"
	"github.com/jhoicas/fulfillment-engine/internal/application/inventory"
	"github.com/jhoicas/fulfillment-engine/internal/application/orders"
	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// Engine decide, por línea solicitada, cuánto sale del stock y cuánto queda como backorder.
// Todo ocurre en una transacción con la fila del producto bloqueada, de modo que dos
// asignaciones concurrentes del mismo producto no pueden leer el mismo stock.
type Engine struct {
	txRunner ports.TxRunner
	locker   ports.ProductLocker
	ledger   *inventory.Ledger
	trail    *audit.Trail
	queue    *backorder.Queue
	machine  *orders.Machine
	log      zerolog.Logger
}

// NewEngine construye el motor de asignación. locker nil equivale a ports.NoopLocker.
func NewEngine(
	txRunner ports.TxRunner,
	locker ports.ProductLocker,
	ledger *inventory.Ledger,
	trail *audit.Trail,
	queue *backorder.Queue,
	machine *orders.Machine,
	log zerolog.Logger,
) *Engine {
	if locker == nil {
		locker = ports.NoopLocker{}
	}
	return &Engine{
		txRunner: txRunner,
		locker:   locker,
		ledger:   ledger,
		trail:    trail,
		queue:    queue,
		machine:  machine,
		log:      log,
	}
}

// Result resultado de una asignación.
type Result struct {
	Item      *entity.OrderItem
	Change    *entity.InventoryChange // nil si no se consumió stock
	Backorder *entity.UnshippedItem   // nil si se cubrió completo
}

// Allocate agrega una línea al pedido y la asigna contra el stock en su propia transacción.
// El actor de la mutación de stock es quien creó el pedido.
func (e *Engine) Allocate(ctx context.Context, orderID, productID string, quantity int) (*entity.OrderItem, error) {
	if quantity <= 0 || orderID == "" || productID == "" {
		return nil, domain.ErrInvalidInput
	}
	release := e.locker.Lock(ctx, []string{productID})
	defer release()

	var item *entity.OrderItem
	err := e.txRunner.Run(ctx, "allocate", func(ctx context.Context, repos repository.Repos) error {
		order, err := repos.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.NotFound("pedido", orderID)
		}
		if order.IsTerminal() {
			return fmt.Errorf("pedido %s en estado %s: %w", order.ID, order.Status, domain.ErrConflict)
		}
		res, err := e.AllocateInTx(ctx, repos, order, productID, quantity, order.CreatedBy)
		if err != nil {
			return err
		}
		item = res.Item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AllocateInTx ejecuta la asignación dentro de la transacción del caller:
//  1. crea la línea (ShippedQuantity = 0)
//  2. bloquea el producto y lee su stock
//  3. stock suficiente: consume todo lo solicitado
//  4. faltante: consume lo disponible (stock queda en 0) y crea el backorder por la diferencia
//  5. recalcula el avance del pedido y deja una fila de changelog con el resultado
func (e *Engine) AllocateInTx(
	ctx context.Context,
	repos repository.Repos,
	order *entity.Order,
	productID string,
	quantity int,
	actorID string,
) (*Result, error) {
	if quantity <= 0 || productID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	item := &entity.OrderItem{
		ID:             uuid.New().String(),
		OrderID:        order.ID,
		ProductID:      productID,
		Quantity:       quantity,
		ShippingStatus: entity.ShippingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repos.OrderItems.Create(ctx, item); err != nil {
		return nil, err
	}

	product, err := repos.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("producto", productID)
	}

	available := product.CurrentStock
	shipped := quantity
	if available < quantity {
		shipped = available
	}

	res := &Result{Item: item}
	orderRef := order.ID
	if shipped > 0 {
		res.Change, err = e.ledger.MutateStockInTx(ctx, repos, product, inventory.Mutation{
			Delta:       -shipped,
			ActorID:     actorID,
			ChangeType:  entity.ChangeTypeOrderConsumption,
			Reference:   &orderRef,
			ClampAtZero: shipped < quantity,
		})
		if err != nil {
			return nil, err
		}
	}

	item.ShippedQuantity = shipped
	item.ShippingStatus = entity.ShippingStatusFulfilled
	if shipped < quantity {
		item.ShippingStatus = entity.ShippingStatusPartial
	}
	item.UpdatedAt = time.Now().UTC()
	if err := repos.OrderItems.UpdateShipment(ctx, item); err != nil {
		return nil, err
	}

	if missing := quantity - shipped; missing > 0 {
		customer, err := repos.Customers.FindByName(ctx, order.CustomerName)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			e.log.Info().
				Str("order_id", order.ID).
				Str("customer_name", order.CustomerName).
				Msg("backorder sin referencia de cliente: no hay cliente con ese nombre")
		}
		res.Backorder, err = e.queue.CreateInTx(ctx, repos, order, item, missing, customer)
		if err != nil {
			return nil, err
		}
	}

	from, to, changed, err := e.machine.RecalculateProgressInTx(ctx, repos, order)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{
		"order_item_id":    item.ID,
		"product_id":       productID,
		"quantity":         quantity,
		"shipped_quantity": shipped,
		"shipping_status":  item.ShippingStatus,
	}
	prev := map[string]any{}
	if res.Backorder != nil {
		changes["unshipped_item_id"] = res.Backorder.ID
		changes["unshipped_quantity"] = res.Backorder.Quantity
	}
	if changed {
		changes["percentage_shipped"] = to.StringFixed(2)
		prev["percentage_shipped"] = from.StringFixed(2)
	}
	if _, err := e.trail.RecordOrderChange(ctx, repos, audit.OrderEntry{
		OrderID:        order.ID,
		UserID:         actorID,
		Action:         entity.OrderActionUpdate,
		Changes:        changes,
		PreviousValues: prev,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyReconciliationInTx suma a la línea original la cantidad de un backorder ya enviado en
// otro pedido, manteniendo ShippedQuantity + backorders abiertos == Quantity.
func (e *Engine) ApplyReconciliationInTx(ctx context.Context, repos repository.Repos, bo *entity.UnshippedItem) (*entity.OrderItem, error) {
	item, err := repos.OrderItems.GetByID(ctx, bo.OrderItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("línea de pedido", bo.OrderItemID)
	}
	item.ShippedQuantity += bo.Quantity
	if item.ShippedQuantity > item.Quantity {
		e.log.Error().
			Str("order_item_id", item.ID).
			Int("quantity", item.Quantity).
			Int("shipped_quantity", item.ShippedQuantity).
			Msg("conciliación excede la cantidad solicitada")
		return nil, domain.ErrConflict
	}
	if item.ShippedQuantity == item.Quantity {
		item.ShippingStatus = entity.ShippingStatusFulfilled
	}
	item.UpdatedAt = time.Now().UTC()
	if err := repos.OrderItems.UpdateShipment(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
