package entity

import "time"

// Tipos de cambio de inventario.
const (
	ChangeTypeStockReplenishment = "stock_replenishment"
	ChangeTypeManualAdjustment   = "manual_adjustment"
	ChangeTypeOrderConsumption   = "order_consumption"
)

// IsValidChangeType indica si t es un tipo de cambio conocido.
func IsValidChangeType(t string) bool {
	switch t {
	case ChangeTypeStockReplenishment, ChangeTypeManualAdjustment, ChangeTypeOrderConsumption:
		return true
	}
	return false
}

// InventoryChange fila de auditoría, una por cada mutación de Product.CurrentStock.
// Append-only.
type InventoryChange struct {
	ID               string
	ProductID        string
	UserID           string
	ChangeType       string
	PreviousQuantity int
	NewQuantity      int
	QuantityChanged  int // NewQuantity - PreviousQuantity
	Reference        *string // p. ej. ID del pedido que consumió el stock
	Notes            *string
	Timestamp        time.Time
}
