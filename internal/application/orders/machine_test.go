package orders_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/application/orders"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/memory"
)

const actor = "user-1"

func newOrder(t *testing.T, stock, qty int) (*fulfillment.Service, *entity.Order) {
	t.Helper()
	svc := fulfillment.Build(memory.NewStore(nil), nil, zerolog.Nop())
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "SKU-1", "Producto", 0, stock, actor)
	require.NoError(t, err)
	o, err := svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: qty}}, actor)
	require.NoError(t, err)
	return svc, o
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{entity.OrderStatusPending, entity.OrderStatusPicked, true},
		{entity.OrderStatusPending, entity.OrderStatusShipped, true},
		{entity.OrderStatusPending, entity.OrderStatusCancelled, true},
		{entity.OrderStatusPicked, entity.OrderStatusPartiallyShipped, true},
		{entity.OrderStatusPicked, entity.OrderStatusPending, false},
		{entity.OrderStatusPartiallyShipped, entity.OrderStatusShipped, true},
		{entity.OrderStatusPartiallyShipped, entity.OrderStatusCancelled, false},
		{entity.OrderStatusShipped, entity.OrderStatusPending, false},
		{entity.OrderStatusShipped, entity.OrderStatusCancelled, false},
		{entity.OrderStatusCancelled, entity.OrderStatusShipped, false},
		{entity.OrderStatusCancelled, entity.OrderStatusPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, orders.CanTransition(tc.from, tc.to))
		})
	}
}

func TestUpdateStatus_CanceladoEsTerminal(t *testing.T) {
	svc, o := newOrder(t, 5, 2)
	ctx := context.Background()

	cancelled, err := svc.UpdateOrderStatus(ctx, o.ID, entity.OrderStatusCancelled, nil, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, entity.OrderStatusShipped, nil, actor)
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, entity.OrderStatusCancelled, te.From)
	assert.Equal(t, entity.OrderStatusShipped, te.To)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)

	logs, err := svc.GetOrderChangelogs(ctx, o.ID)
	require.NoError(t, err)
	statusChanges := 0
	for _, l := range logs {
		if l.Action == entity.OrderActionStatusChange {
			statusChanges++
			assert.Equal(t, entity.OrderStatusPending, l.PreviousValues["status"])
			assert.Equal(t, entity.OrderStatusCancelled, l.Changes["status"])
		}
	}
	assert.Equal(t, 1, statusChanges, "la transición rechazada no deja changelog")
}

func TestScenarioD_PendienteDirectoAEnviadoConDocumento(t *testing.T) {
	svc, o := newOrder(t, 5, 2)
	ctx := context.Background()
	before, err := svc.GetOrderChangelogs(ctx, o.ID)
	require.NoError(t, err)

	doc := &entity.ShippingDocument{Number: "GUIA-001", Carrier: "Servientrega"}
	got, err := svc.UpdateOrderStatus(ctx, o.ID, entity.OrderStatusShipped, doc, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusShipped, got.Status)
	assert.True(t, got.HasShippingDocument)
	require.NotNil(t, got.ShippingDocument)
	assert.Equal(t, "GUIA-001", got.ShippingDocument.Number)

	after, err := svc.GetOrderChangelogs(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1, "una sola fila por la transición")
	last := after[len(after)-1]
	assert.Equal(t, entity.OrderActionStatusChange, last.Action)
	assert.Equal(t, entity.OrderStatusPending, last.PreviousValues["status"])
	assert.Equal(t, entity.OrderStatusShipped, last.Changes["status"])
	assert.Equal(t, "GUIA-001", last.Changes["shipping_document_number"])
}

func TestUpdateStatus_EntradaInvalida(t *testing.T) {
	svc, o := newOrder(t, 5, 2)
	ctx := context.Background()

	_, err := svc.UpdateOrderStatus(ctx, o.ID, "en_bodega", nil, actor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.UpdateOrderStatus(ctx, "no-existe", entity.OrderStatusPicked, nil, actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteShipment_ConciliaBackordersAbiertos(t *testing.T) {
	svc, o := newOrder(t, 3, 7)
	ctx := context.Background()

	_, err := svc.UpdateOrderStatus(ctx, o.ID, entity.OrderStatusPartiallyShipped, nil, actor)
	require.NoError(t, err)

	ok, err := svc.CompleteShipment(ctx, o.ID, "supervisor")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusShipped, got.Status)
	assert.Equal(t, "100.00", got.PercentageShipped.StringFixed(2))
	assert.NotNil(t, got.ActualShippingDate)
	for _, it := range got.Items {
		assert.Equal(t, it.Quantity, it.ShippedQuantity)
		assert.Equal(t, entity.ShippingStatusFulfilled, it.ShippingStatus)
	}

	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Cerrar de nuevo un pedido enviado es una transición inválida.
	_, err = svc.CompleteShipment(ctx, o.ID, actor)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompleteShipment_CanceladoRechazado(t *testing.T) {
	svc, o := newOrder(t, 5, 1)
	ctx := context.Background()
	_, err := svc.UpdateOrderStatus(ctx, o.ID, entity.OrderStatusCancelled, nil, actor)
	require.NoError(t, err)

	ok, err := svc.CompleteShipment(ctx, o.ID, actor)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, "0.00", orders.Progress(nil).StringFixed(2))
	items := []*entity.OrderItem{
		{Quantity: 7, ShippedQuantity: 3},
	}
	assert.Equal(t, "42.86", orders.Progress(items).StringFixed(2))
	items = append(items, &entity.OrderItem{Quantity: 3, ShippedQuantity: 3})
	assert.Equal(t, "60.00", orders.Progress(items).StringFixed(2))
}
