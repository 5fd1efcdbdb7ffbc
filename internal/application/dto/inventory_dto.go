package dto

import "time"

// StockMutationRequest body para POST /api/inventory/products/:id/stock.
type StockMutationRequest struct {
	Delta      int     `json:"delta" validate:"required,ne=0"`
	ChangeType string  `json:"change_type" validate:"required,oneof=stock_replenishment manual_adjustment"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// InventoryChangeResponse fila del audit trail de inventario.
type InventoryChangeResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	UserID           string    `json:"user_id"`
	ChangeType       string    `json:"change_type"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	QuantityChanged  int       `json:"quantity_changed"`
	Reference        *string   `json:"reference,omitempty"`
	Notes            *string   `json:"notes"`
	Timestamp        time.Time `json:"timestamp"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un SKU bajo su stock mínimo.
type ReplenishmentSuggestionDTO struct {
	ProductID         string `json:"product_id"`
	SKU               string `json:"sku"`
	ProductName       string `json:"product_name"`
	CurrentStock      int    `json:"current_stock"`
	MinStockLevel     int    `json:"min_stock_level"`
	IdealStock        int    `json:"ideal_stock"`         // MinStockLevel * 1.5
	SuggestedOrderQty int    `json:"suggested_order_qty"` // IdealStock - CurrentStock
	Priority          int    `json:"priority"`            // 1 = más urgente
}
