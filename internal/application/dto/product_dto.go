package dto

import "time"

// ProductResponse salida de producto con su stock del ledger.
type ProductResponse struct {
	ID              string     `json:"id"`
	SKU             string     `json:"sku"`
	Name            string     `json:"name"`
	CurrentStock    int        `json:"current_stock"`
	MinStockLevel   int        `json:"min_stock_level"`
	LastStockUpdate *time.Time `json:"last_stock_update"`
}

// CreateProductRequest body para POST /api/inventory/products.
type CreateProductRequest struct {
	SKU           string `json:"sku" validate:"required,max=64"`
	Name          string `json:"name" validate:"required,max=200"`
	MinStockLevel int    `json:"min_stock_level" validate:"min=0"`
	InitialStock  int    `json:"initial_stock" validate:"min=0"`
}
