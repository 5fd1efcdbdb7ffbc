package fulfillment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/memory"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
)

const actor = "user-1"

func noSleep(context.Context, time.Duration) error { return nil }

func newStore() *memory.Store {
	return memory.NewStore(resilience.NewRetrier(resilience.DefaultPolicy(), zerolog.Nop(), resilience.WithSleeper(noSleep)))
}

func newService(t *testing.T) (*fulfillment.Service, *memory.Store) {
	t.Helper()
	store := newStore()
	return fulfillment.Build(store, nil, zerolog.Nop()), store
}

func seedProduct(t *testing.T, svc *fulfillment.Service, sku string, stock int) *entity.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), sku, "Producto "+sku, 2, stock, actor)
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, svc *fulfillment.Service, productID string) int {
	t.Helper()
	p, err := svc.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.CurrentStock
}

func TestScenarioA_StockSuficiente(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "A", 10)

	order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 10}}, actor)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 10, order.Items[0].ShippedQuantity)
	assert.Equal(t, entity.ShippingStatusFulfilled, order.Items[0].ShippingStatus)
	assert.Equal(t, 0, stockOf(t, svc, p.ID))
	assert.Equal(t, "100.00", order.PercentageShipped.StringFixed(2))

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	changes, err := svc.GetInventoryChanges(ctx, &p.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	consumption := changes[1]
	assert.Equal(t, entity.ChangeTypeOrderConsumption, consumption.ChangeType)
	assert.Equal(t, 10, consumption.PreviousQuantity)
	assert.Equal(t, 0, consumption.NewQuantity)
	assert.Equal(t, -10, consumption.QuantityChanged)
	require.NotNil(t, consumption.Reference)
	assert.Equal(t, order.ID, *consumption.Reference)
}

func TestScenarioB_StockParcialCreaBackorder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "B", 3)

	order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 7}}, actor)
	require.NoError(t, err)

	item := order.Items[0]
	assert.Equal(t, 3, item.ShippedQuantity)
	assert.Equal(t, entity.ShippingStatusPartial, item.ShippingStatus)
	assert.Equal(t, 0, stockOf(t, svc, p.ID))

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	bo := pending[0]
	assert.Equal(t, 4, bo.Quantity)
	assert.Equal(t, item.ID, bo.OrderItemID)
	assert.Equal(t, order.OrderNumber, bo.OriginalOrderNumber)
	assert.False(t, bo.Authorized)
	assert.False(t, bo.Shipped)
	assert.Equal(t, item.Quantity, item.ShippedQuantity+bo.Quantity)
}

func TestScenarioC_AutorizarYConciliar(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "C", 3)

	original, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 7}}, actor)
	require.NoError(t, err)
	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	boID := pending[0].ID

	require.NoError(t, svc.AuthorizeUnshippedItems(ctx, []string{boID}, "supervisor"))
	_, err = svc.MutateStock(ctx, p.ID, 4, actor, entity.ChangeTypeStockReplenishment, nil)
	require.NoError(t, err)
	replacement, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 4}}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileShipped(ctx, []string{boID}, replacement.ID, actor))

	got, err := svc.GetOrder(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Items[0].ShippedQuantity)
	assert.Equal(t, entity.ShippingStatusFulfilled, got.Items[0].ShippingStatus)
	assert.Equal(t, "100.00", got.PercentageShipped.StringFixed(2))

	pending, err = svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	logs, err := svc.GetOrderChangelogs(ctx, original.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, entity.OrderActionUpdate, last.Action)
	assert.Equal(t, replacement.ID, last.Changes["shipped_in_order_id"])

	// Conciliar otra vez el mismo backorder es un conflicto, no un doble envío.
	err = svc.ReconcileShipped(ctx, []string{boID}, replacement.ID, actor)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestScenarioC_EstadoDelBackorder(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "C2", 0)

	_, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 2}}, actor)
	require.NoError(t, err)
	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	boID := pending[0].ID

	require.NoError(t, svc.AuthorizeUnshippedItems(ctx, []string{boID}, "supervisor"))
	_, err = svc.MutateStock(ctx, p.ID, 2, actor, entity.ChangeTypeStockReplenishment, nil)
	require.NoError(t, err)
	replacement, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 2}}, actor)
	require.NoError(t, err)
	require.NoError(t, svc.ReconcileShipped(ctx, []string{boID}, replacement.ID, actor))

	var bo *entity.UnshippedItem
	require.NoError(t, store.Run(ctx, "read", func(ctx context.Context, repos repository.Repos) error {
		list, err := repos.UnshippedItems.ListByIDs(ctx, []string{boID})
		if err == nil && len(list) == 1 {
			bo = list[0]
		}
		return err
	}))
	require.NotNil(t, bo)
	assert.True(t, bo.Authorized)
	assert.Equal(t, "supervisor", *bo.AuthorizedBy)
	assert.True(t, bo.Shipped)
	require.NotNil(t, bo.ShippedInOrderID)
	assert.Equal(t, replacement.ID, *bo.ShippedInOrderID)
	assert.NotNil(t, bo.ShippedAt)
}

func TestReconcileShipped_Precondiciones(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "R", 0)

	original, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 5}}, actor)
	require.NoError(t, err)
	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	boID := pending[0].ID

	_, err = svc.MutateStock(ctx, p.ID, 2, actor, entity.ChangeTypeStockReplenishment, nil)
	require.NoError(t, err)
	short, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 2}}, actor)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ReconcileShipped(ctx, []string{boID}, short.ID, actor), domain.ErrConflict, "sin autorizar")

	require.NoError(t, svc.AuthorizeUnshippedItems(ctx, []string{boID}, actor))
	assert.ErrorIs(t, svc.ReconcileShipped(ctx, []string{boID}, short.ID, actor), domain.ErrConflict,
		"el reemplazo solo envió 2 de 5")
	assert.ErrorIs(t, svc.ReconcileShipped(ctx, []string{"no-existe"}, short.ID, actor), domain.ErrNotFound)
	assert.ErrorIs(t, svc.ReconcileShipped(ctx, []string{boID}, "no-existe", actor), domain.ErrNotFound)
	assert.ErrorIs(t, svc.ReconcileShipped(ctx, nil, short.ID, actor), domain.ErrInvalidInput)

	// Nada cambió en el pedido original.
	got, err := svc.GetOrder(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Items[0].ShippedQuantity)
}

func TestReconcileShipped_NoReutilizaUnidadesYaConciliadas(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "RU", 0)

	first, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 4}}, actor)
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 4}}, actor)
	require.NoError(t, err)
	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	bo1, bo2 := pending[0].ID, pending[1].ID
	require.NoError(t, svc.AuthorizeUnshippedItems(ctx, []string{bo1, bo2}, "supervisor"))

	_, err = svc.MutateStock(ctx, p.ID, 4, actor, entity.ChangeTypeStockReplenishment, nil)
	require.NoError(t, err)
	replacement, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 4}}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileShipped(ctx, []string{bo1}, replacement.ID, actor))
	err = svc.ReconcileShipped(ctx, []string{bo2}, replacement.ID, actor)
	assert.ErrorIs(t, err, domain.ErrConflict, "las 4 unidades del reemplazo ya cubrieron bo1")

	got, err := svc.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Items[0].ShippedQuantity)
	got, err = svc.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Items[0].ShippedQuantity, "bo2 sigue abierto")

	// Un segundo envío libera unidades nuevas para bo2.
	_, err = svc.MutateStock(ctx, p.ID, 4, actor, entity.ChangeTypeStockReplenishment, nil)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, replacement.ID, p.ID, 4)
	require.NoError(t, err)
	require.NoError(t, svc.ReconcileShipped(ctx, []string{bo2}, replacement.ID, actor))
}

func TestScenarioE_ErrorTransitorioSeReintentaSinDuplicar(t *testing.T) {
	store := newStore()
	flaky := &flakyRunner{inner: store, failures: 3}
	svc := fulfillment.Build(flaky, nil, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "E", "Producto E", 0, 10, actor)
	require.NoError(t, err)

	flaky.arm(3)
	got, err := svc.MutateStock(ctx, p.ID, -4, actor, entity.ChangeTypeManualAdjustment, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentStock)
	assert.Equal(t, 4, flaky.attempts, "3 fallos + 1 éxito")

	changes, err := svc.GetInventoryChanges(ctx, &p.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2, "alta + un solo ajuste pese a los reintentos")
	assert.Equal(t, -4, changes[1].QuantityChanged)
}

func TestScenarioE_AgotarReintentosNoDejaRastro(t *testing.T) {
	store := newStore()
	flaky := &flakyRunner{inner: store}
	svc := fulfillment.Build(flaky, nil, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "E2", "Producto E2", 0, 10, actor)
	require.NoError(t, err)

	flaky.arm(100)
	_, err = svc.MutateStock(ctx, p.ID, -4, actor, entity.ChangeTypeManualAdjustment, nil)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 5, flaky.attempts)

	flaky.arm(0)
	assert.Equal(t, 10, stockOf(t, svc, p.ID))
	changes, err := svc.GetInventoryChanges(ctx, &p.ID)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

// retryFixture prepara un servicio sobre flakyRunner con un producto de stock dado.
func retryFixture(t *testing.T, sku string, stock int) (*fulfillment.Service, *flakyRunner, *entity.Product) {
	t.Helper()
	flaky := &flakyRunner{inner: newStore()}
	svc := fulfillment.Build(flaky, nil, zerolog.Nop())
	p, err := svc.CreateProduct(context.Background(), sku, "Producto "+sku, 0, stock, actor)
	require.NoError(t, err)
	return svc, flaky, p
}

// assertSingleAllocation verifica que la asignación de productID en orderID quedó una sola vez.
func assertSingleAllocation(t *testing.T, svc *fulfillment.Service, orderID, productID string, shipped, backordered int) {
	t.Helper()
	ctx := context.Background()

	order, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	lines := 0
	for _, it := range order.Items {
		if it.ProductID == productID {
			lines++
			assert.Equal(t, shipped, it.ShippedQuantity)
		}
	}
	assert.Equal(t, 1, lines, "una sola línea del producto")

	changes, err := svc.GetInventoryChanges(ctx, &productID)
	require.NoError(t, err)
	consumed := 0
	for _, c := range changes {
		if c.ChangeType == entity.ChangeTypeOrderConsumption {
			consumed++
			require.NotNil(t, c.Reference)
			assert.Equal(t, orderID, *c.Reference)
			assert.Equal(t, -shipped, c.QuantityChanged)
		}
	}
	assert.Equal(t, 1, consumed, "un solo consumo de stock")

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	var bos []*entity.UnshippedItem
	for _, bo := range pending {
		if bo.ProductID == productID {
			bos = append(bos, bo)
		}
	}
	if backordered == 0 {
		assert.Empty(t, bos)
	} else {
		require.Len(t, bos, 1, "un solo backorder")
		assert.Equal(t, backordered, bos[0].Quantity)
		assert.Equal(t, orderID, bos[0].OrderID)
	}
}

func TestScenarioE_CreateOrderReintentadoNoDuplica(t *testing.T) {
	cases := map[string]struct {
		stock, qty, shipped, backordered int
	}{
		"stock completo": {stock: 10, qty: 6, shipped: 6},
		"faltante":       {stock: 3, qty: 7, shipped: 3, backordered: 4},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, flaky, p := retryFixture(t, "ER", tc.stock)
			ctx := context.Background()

			flaky.arm(2)
			order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: tc.qty}}, actor)
			require.NoError(t, err)
			assert.Equal(t, 3, flaky.attempts, "2 fallos + 1 éxito")

			assert.Equal(t, tc.stock-tc.shipped, stockOf(t, svc, p.ID), "el stock baja una sola vez")
			assertSingleAllocation(t, svc, order.ID, p.ID, tc.shipped, tc.backordered)

			logs, err := svc.GetOrderChangelogs(ctx, order.ID)
			require.NoError(t, err)
			assert.Len(t, logs, 2, "create + una fila de asignación")
		})
	}
}

func TestScenarioE_AllocateReintentadoNoDuplica(t *testing.T) {
	cases := map[string]struct {
		stock, qty, shipped, backordered int
	}{
		"stock completo": {stock: 10, qty: 6, shipped: 6},
		"faltante":       {stock: 3, qty: 7, shipped: 3, backordered: 4},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, flaky, p := retryFixture(t, "EA", tc.stock)
			ctx := context.Background()
			other, err := svc.CreateProduct(ctx, "EA-OTRO", "Otro", 0, 1, actor)
			require.NoError(t, err)
			order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: other.ID, Quantity: 1}}, actor)
			require.NoError(t, err)

			flaky.arm(2)
			item, err := svc.Allocate(ctx, order.ID, p.ID, tc.qty)
			require.NoError(t, err)
			assert.Equal(t, 3, flaky.attempts, "2 fallos + 1 éxito")
			assert.Equal(t, tc.shipped, item.ShippedQuantity)

			assert.Equal(t, tc.stock-tc.shipped, stockOf(t, svc, p.ID), "el stock baja una sola vez")
			assertSingleAllocation(t, svc, order.ID, p.ID, tc.shipped, tc.backordered)

			got, err := svc.GetOrder(ctx, order.ID)
			require.NoError(t, err)
			assert.Len(t, got.Items, 2)

			logs, err := svc.GetOrderChangelogs(ctx, order.ID)
			require.NoError(t, err)
			assert.Len(t, logs, 3, "create + línea inicial + la asignación reintentada")
		})
	}
}

func TestAllocate_ConcurrenteNoSobrevende(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	const stock, workers, perOrder = 25, 20, 3
	p := seedProduct(t, svc, "CONC", stock)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: perOrder}}, actor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 0, stockOf(t, svc, p.ID))
	changes, err := svc.GetInventoryChanges(ctx, &p.ID)
	require.NoError(t, err)
	shipped := 0
	for _, c := range changes {
		if c.ChangeType == entity.ChangeTypeOrderConsumption {
			shipped -= c.QuantityChanged
		}
	}
	assert.Equal(t, stock, shipped, "total enviado == min(stock, total solicitado)")

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	backordered := 0
	for _, bo := range pending {
		backordered += bo.Quantity
	}
	assert.Equal(t, workers*perOrder-stock, backordered)
}

func TestCreateOrder_VariasLineasAtomico(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := seedProduct(t, svc, "M-A", 5)

	_, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: "no-existe", Quantity: 1},
	}, actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 5, stockOf(t, svc, a.ID), "la línea válida no consumió stock")

	b := seedProduct(t, svc, "M-B", 1)
	order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 3},
	}, actor)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "60.00", order.PercentageShipped.StringFixed(2), "3 de 5 unidades")
	assert.Regexp(t, `^ORD-[0-9A-F]{12}$`, order.OrderNumber)

	logs, err := svc.GetOrderChangelogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3, "create + una fila por línea")
	assert.Equal(t, entity.OrderActionCreate, logs[0].Action)
}

func TestCreateOrder_Validaciones(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "V", 5)

	cases := map[string]struct {
		customer string
		items    []fulfillment.ItemRequest
		actor    string
	}{
		"sin cliente":       {"", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 1}}, actor},
		"sin líneas":        {"ACME", nil, actor},
		"cantidad cero":     {"ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 0}}, actor},
		"cantidad negativa": {"ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: -1}}, actor},
		"sin actor":         {"ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 1}}, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tc.customer, tc.items, tc.actor)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, 5, stockOf(t, svc, p.ID))
}

func TestAllocate_LineaSobrePedidoExistente(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "AL", 4)

	order, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 1}}, "vendedor-7")
	require.NoError(t, err)

	item, err := svc.Allocate(ctx, order.ID, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, item.ShippedQuantity)

	changes, err := svc.GetInventoryChanges(ctx, &p.ID)
	require.NoError(t, err)
	assert.Equal(t, "vendedor-7", changes[len(changes)-1].UserID, "el actor de la asignación es quien creó el pedido")

	_, err = svc.Allocate(ctx, "no-existe", p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Allocate(ctx, order.ID, "no-existe", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Allocate(ctx, order.ID, p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, entity.OrderStatusCancelled, nil, actor)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, order.ID, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestBackorder_ReferenciaAlClienteCuandoExiste(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := seedProduct(t, svc, "CL", 0)

	customer, err := svc.CreateCustomer(ctx, "José  Pérez", "jose@example.com")
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, "JOSÉ PÉREZ", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 1}}, actor)
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, "Desconocido", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 1}}, actor)
	require.NoError(t, err)

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NotNil(t, pending[0].CustomerID)
	assert.Equal(t, customer.ID, *pending[0].CustomerID)
	assert.Nil(t, pending[1].CustomerID, "sin cliente el backorder se crea igual")
}

func TestListLowStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seedProduct(t, svc, "OK", 10)
	low := seedProduct(t, svc, "LOW", 1)
	empty := seedProduct(t, svc, "EMPTY", 0)

	list, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, empty.ID, list[0].ProductID, "mayor déficit primero")
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, low.ID, list[1].ProductID)
	assert.Equal(t, 3, list[0].SuggestedOrderQty, "ideal 1.5 * mínimo 2 = 3")
}

// flakyRunner devuelve un error de conexión dentro de la transacción, después de que fn
// terminó y antes del commit, las próximas `failures` veces.
type flakyRunner struct {
	inner    *memory.Store
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakyRunner) arm(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
	f.attempts = 0
}

func (f *flakyRunner) Run(ctx context.Context, label string, fn func(ctx context.Context, repos repository.Repos) error) error {
	return f.inner.Run(ctx, label, func(ctx context.Context, repos repository.Repos) error {
		if err := fn(ctx, repos); err != nil {
			return err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.attempts++
		if f.failures > 0 {
			f.failures--
			return &pgconn.PgError{Code: "08006", Message: "connection failure"}
		}
		return nil
	})
}
