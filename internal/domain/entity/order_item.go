package entity

import "time"

// Estados de envío de una línea de pedido.
const (
	ShippingStatusPending   = "pending"
	ShippingStatusFulfilled = "fulfilled"
	ShippingStatusPartial   = "partial"
)

// OrderItem línea de pedido. Quantity es lo solicitado; ShippedQuantity y ShippingStatus
// los fija el motor de asignación.
type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	Quantity        int
	ShippedQuantity int
	ShippingStatus  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Pending devuelve la cantidad aún no enviada de la línea.
func (i *OrderItem) Pending() int {
	return i.Quantity - i.ShippedQuantity
}
