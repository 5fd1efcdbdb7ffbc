package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-engine/internal/application/allocation"
	"github.com/jhoicas/fulfillment-engine/internal/application/audit"
	"github.com/jhoicas/fulfillment-engine/internal/application/backorder"
	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/application/inventory"
	"github.com/jhoicas/fulfillment-engine/internal/application/orders"
	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// Service contrato funcional que consume la capa HTTP (y el CLI): crea pedidos, asigna stock,
// mueve estados y administra backorders.
type Service struct {
	txRunner      ports.TxRunner
	locker        ports.ProductLocker
	ledger        *inventory.Ledger
	trail         *audit.Trail
	queue         *backorder.Queue
	machine       *orders.Machine
	engine        *allocation.Engine
	replenishment *inventory.ReplenishmentUseCase
}

// Deps componentes del núcleo.
type Deps struct {
	TxRunner      ports.TxRunner
	Locker        ports.ProductLocker
	Ledger        *inventory.Ledger
	Trail         *audit.Trail
	Queue         *backorder.Queue
	Machine       *orders.Machine
	Engine        *allocation.Engine
	Replenishment *inventory.ReplenishmentUseCase
}

// NewService construye la fachada.
func NewService(d Deps) *Service {
	locker := d.Locker
	if locker == nil {
		locker = ports.NoopLocker{}
	}
	return &Service{
		txRunner:      d.TxRunner,
		locker:        locker,
		ledger:        d.Ledger,
		trail:         d.Trail,
		queue:         d.Queue,
		machine:       d.Machine,
		engine:        d.Engine,
		replenishment: d.Replenishment,
	}
}

// ItemRequest línea solicitada en CreateOrder.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateOrder crea el pedido y asigna todas sus líneas en UNA transacción reintentable.
// Los productos se bloquean en orden ascendente de ID para evitar deadlocks entre pedidos
// con varias líneas.
func (s *Service) CreateOrder(ctx context.Context, customerName string, items []ItemRequest, actorID string) (*entity.Order, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" || actorID == "" || len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		productIDs = append(productIDs, it.ProductID)
	}
	productIDs = backorder.UniqueIDs(productIDs)
	sort.Strings(productIDs)

	release := s.locker.Lock(ctx, productIDs)
	defer release()

	var order *entity.Order
	err := s.txRunner.Run(ctx, "create_order", func(ctx context.Context, repos repository.Repos) error {
		for _, pid := range productIDs {
			p, err := repos.Products.GetForUpdate(ctx, pid)
			if err != nil {
				return err
			}
			if p == nil {
				return domain.NotFound("producto", pid)
			}
		}

		now := time.Now().UTC()
		id := uuid.New()
		o := &entity.Order{
			ID:                id.String(),
			OrderNumber:       OrderNumber(id),
			Status:            entity.OrderStatusPending,
			CustomerName:      customerName,
			OrderDate:         now,
			PercentageShipped: decimal.Zero,
			LastUpdated:       now,
			CreatedBy:         actorID,
		}
		if err := repos.Orders.Create(ctx, o); err != nil {
			return err
		}
		if _, err := s.trail.RecordOrderChange(ctx, repos, audit.OrderEntry{
			OrderID: o.ID,
			UserID:  actorID,
			Action:  entity.OrderActionCreate,
			Changes: map[string]any{
				"order_number":  o.OrderNumber,
				"customer_name": o.CustomerName,
				"status":        o.Status,
				"items":         len(items),
			},
		}); err != nil {
			return err
		}
		for _, it := range items {
			if _, err := s.engine.AllocateInTx(ctx, repos, o, it.ProductID, it.Quantity, actorID); err != nil {
				return err
			}
		}
		var err error
		o.Items, err = repos.OrderItems.ListByOrder(ctx, o.ID)
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

// OrderNumber deriva el número de pedido legible del ID.
func OrderNumber(id uuid.UUID) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

// Allocate asigna una línea nueva a un pedido existente.
func (s *Service) Allocate(ctx context.Context, orderID, productID string, quantity int) (*entity.OrderItem, error) {
	return s.engine.Allocate(ctx, orderID, productID, quantity)
}

// UpdateOrderStatus delega en la máquina de estados.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, status string, doc *entity.ShippingDocument, actorID string) (*entity.Order, error) {
	return s.machine.UpdateStatus(ctx, orderID, status, doc, actorID)
}

// CompleteShipment cierra el pedido como enviado al 100%.
func (s *Service) CompleteShipment(ctx context.Context, orderID, actorID string) (bool, error) {
	return s.machine.CompleteShipment(ctx, orderID, actorID)
}

// GetOrder devuelve el pedido con sus líneas.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.machine.Get(ctx, orderID)
}

// ListUnshippedItemsForAuthorization backorders pendientes de revisión manual.
func (s *Service) ListUnshippedItemsForAuthorization(ctx context.Context) ([]*entity.UnshippedItem, error) {
	return s.queue.ListForAuthorization(ctx)
}

// AuthorizeUnshippedItems autoriza en bloque.
func (s *Service) AuthorizeUnshippedItems(ctx context.Context, ids []string, actorID string) error {
	return s.queue.Authorize(ctx, ids, actorID)
}

// ReconcileShipped marca los backorders como enviados en newOrderID tras verificar que cada id
// existe, está autorizado y sin enviar, y que el pedido de reemplazo envió al menos esa
// cantidad por producto sin contar lo conciliado antes contra él. Las líneas originales suman lo conciliado y cada pedido original
// recalcula su avance con una fila de changelog.
func (s *Service) ReconcileShipped(ctx context.Context, ids []string, newOrderID, actorID string) error {
	ids = backorder.UniqueIDs(ids)
	if len(ids) == 0 || newOrderID == "" || actorID == "" {
		return domain.ErrInvalidInput
	}
	return s.txRunner.Run(ctx, "reconcile_shipped", func(ctx context.Context, repos repository.Repos) error {
		newOrder, err := repos.Orders.GetForUpdate(ctx, newOrderID)
		if err != nil {
			return err
		}
		if newOrder == nil {
			return domain.NotFound("pedido", newOrderID)
		}
		if newOrder.Status == entity.OrderStatusCancelled {
			return fmt.Errorf("pedido de reemplazo %s cancelado: %w", newOrderID, domain.ErrConflict)
		}

		items, err := repos.UnshippedItems.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		found := make(map[string]*entity.UnshippedItem, len(items))
		for _, bo := range items {
			found[bo.ID] = bo
		}
		needed := make(map[string]int)
		for _, id := range ids {
			bo, ok := found[id]
			if !ok {
				return domain.NotFound("backorder", id)
			}
			if bo.Shipped {
				return fmt.Errorf("backorder %s ya enviado: %w", id, domain.ErrConflict)
			}
			if !bo.Authorized {
				return fmt.Errorf("backorder %s sin autorizar: %w", id, domain.ErrConflict)
			}
			if bo.OrderID == newOrderID {
				return fmt.Errorf("backorder %s pertenece al pedido de reemplazo: %w", id, domain.ErrInvalidInput)
			}
			needed[bo.ProductID] += bo.Quantity
		}

		newItems, err := repos.OrderItems.ListByOrder(ctx, newOrderID)
		if err != nil {
			return err
		}
		covered := make(map[string]int)
		for _, it := range newItems {
			covered[it.ProductID] += it.ShippedQuantity
		}
		// Lo ya conciliado contra este pedido no vuelve a cubrir otros backorders.
		prior, err := repos.UnshippedItems.ListShippedInOrder(ctx, newOrderID)
		if err != nil {
			return err
		}
		for _, bo := range prior {
			covered[bo.ProductID] -= bo.Quantity
		}
		for productID, qty := range needed {
			if covered[productID] < qty {
				return fmt.Errorf("pedido %s tiene %d de %d unidades libres de %s: %w",
					newOrderID, covered[productID], qty, productID, domain.ErrConflict)
			}
		}

		n, err := s.queue.MarkShippedInTx(ctx, repos, ids, newOrderID)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return domain.ErrConflict
		}

		byOrder := make(map[string][]string)
		var orderIDs []string
		for _, id := range ids {
			bo := found[id]
			if _, err := s.engine.ApplyReconciliationInTx(ctx, repos, bo); err != nil {
				return err
			}
			if _, seen := byOrder[bo.OrderID]; !seen {
				orderIDs = append(orderIDs, bo.OrderID)
			}
			byOrder[bo.OrderID] = append(byOrder[bo.OrderID], id)
		}
		sort.Strings(orderIDs)

		for _, oid := range orderIDs {
			o, err := repos.Orders.GetForUpdate(ctx, oid)
			if err != nil {
				return err
			}
			if o == nil {
				return domain.NotFound("pedido", oid)
			}
			from, to, changed, err := s.machine.RecalculateProgressInTx(ctx, repos, o)
			if err != nil {
				return err
			}
			changes := map[string]any{
				"reconciled_backorders": byOrder[oid],
				"shipped_in_order_id":   newOrderID,
			}
			prev := map[string]any{}
			if changed {
				changes["percentage_shipped"] = to.StringFixed(2)
				prev["percentage_shipped"] = from.StringFixed(2)
			}
			if _, err := s.trail.RecordOrderChange(ctx, repos, audit.OrderEntry{
				OrderID:        oid,
				UserID:         actorID,
				Action:         entity.OrderActionUpdate,
				Changes:        changes,
				PreviousValues: prev,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// MutateStock reposición o ajuste manual de stock.
func (s *Service) MutateStock(ctx context.Context, productID string, delta int, actorID, changeType string, notes *string) (*entity.Product, error) {
	return s.ledger.MutateStock(ctx, productID, delta, actorID, changeType, notes)
}

// GetInventoryChanges audit trail de inventario; productID nil = todos.
func (s *Service) GetInventoryChanges(ctx context.Context, productID *string) ([]*entity.InventoryChange, error) {
	return s.trail.InventoryChanges(ctx, productID)
}

// GetOrderChangelogs historial de un pedido.
func (s *Service) GetOrderChangelogs(ctx context.Context, orderID string) ([]*entity.OrderChangelog, error) {
	return s.trail.OrderChangelogs(ctx, orderID)
}

// ListLowStock productos por debajo del stock mínimo con sugerencia de reposición.
func (s *Service) ListLowStock(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	return s.replenishment.GenerateReplenishmentList(ctx)
}

// CreateProduct alta de producto con stock inicial auditado.
func (s *Service) CreateProduct(ctx context.Context, sku, name string, minStockLevel, initialStock int, actorID string) (*entity.Product, error) {
	return s.ledger.CreateProduct(ctx, sku, name, minStockLevel, initialStock, actorID)
}

// GetProduct producto con su stock actual.
func (s *Service) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	return s.ledger.GetProduct(ctx, productID)
}

// CreateCustomer registra un cliente; los backorders lo referencian por nombre normalizado.
func (s *Service) CreateCustomer(ctx context.Context, name, email string) (*entity.Customer, error) {
	name = strings.TrimSpace(name)
	if entity.NormalizeCustomerName(name) == "" {
		return nil, domain.ErrInvalidInput
	}
	var customer *entity.Customer
	err := s.txRunner.Run(ctx, "create_customer", func(ctx context.Context, repos repository.Repos) error {
		now := time.Now().UTC()
		c := &entity.Customer{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     strings.TrimSpace(email),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Customers.Create(ctx, c); err != nil {
			return err
		}
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}
