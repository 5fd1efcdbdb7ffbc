package entity

import "time"

// UnshippedItem (backorder) faltante de una línea que no se pudo cubrir con stock.
// Nunca se elimina: pasa de no autorizado a autorizado y luego a enviado, una sola vez.
type UnshippedItem struct {
	ID                  string
	OrderID             string
	OrderItemID         string
	ProductID           string
	Quantity            int
	CustomerName        string
	CustomerID          *string // nil si no se encontró el cliente por nombre
	OriginalOrderNumber string
	Authorized          bool
	AuthorizedBy        *string
	AuthorizedAt        *time.Time
	Shipped             bool
	ShippedInOrderID    *string
	ShippedAt           *time.Time
	CreatedAt           time.Time
}
