package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pedido.
const (
	OrderStatusPending          = "pending"
	OrderStatusPicked           = "picked"
	OrderStatusPartiallyShipped = "partially_shipped"
	OrderStatusShipped          = "shipped"
	OrderStatusCancelled        = "cancelled"
)

// Order representa un pedido de cliente. Status y PercentageShipped solo cambian
// a través de la máquina de estados (application/orders).
type Order struct {
	ID                  string
	OrderNumber         string // único, derivado del ID
	Status              string
	CustomerName        string
	OrderDate           time.Time
	PercentageShipped   decimal.Decimal
	HasShippingDocument bool
	ShippingDocument    *ShippingDocument
	ActualShippingDate  *time.Time
	LastUpdated         time.Time
	CreatedBy           string
	Items               []*OrderItem // solo lectura; se llena en GetOrder
}

// ShippingDocument datos del documento de envío adjunto al pasar a shipped.
type ShippingDocument struct {
	Number  string `json:"number"`
	Carrier string `json:"carrier,omitempty"`
	URL     string `json:"url,omitempty"`
}

// IsValidOrderStatus indica si s es un estado de pedido conocido.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPicked, OrderStatusPartiallyShipped,
		OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal indica si el pedido ya no admite transiciones.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusCancelled
}
