package dto

import "time"

// AuthorizeUnshippedRequest body para POST /api/backorders/authorize.
type AuthorizeUnshippedRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// ReconcileShippedRequest body para POST /api/backorders/reconcile.
type ReconcileShippedRequest struct {
	IDs        []string `json:"ids" validate:"required,min=1,dive,required"`
	NewOrderID string   `json:"new_order_id" validate:"required"`
}

// UnshippedItemResponse backorder pendiente.
type UnshippedItemResponse struct {
	ID                  string     `json:"id"`
	OrderID             string     `json:"order_id"`
	OrderItemID         string     `json:"order_item_id"`
	ProductID           string     `json:"product_id"`
	Quantity            int        `json:"quantity"`
	CustomerName        string     `json:"customer_name"`
	CustomerID          *string    `json:"customer_id"`
	OriginalOrderNumber string     `json:"original_order_number"`
	Authorized          bool       `json:"authorized"`
	AuthorizedBy        *string    `json:"authorized_by"`
	AuthorizedAt        *time.Time `json:"authorized_at"`
	Shipped             bool       `json:"shipped"`
	ShippedInOrderID    *string    `json:"shipped_in_order_id"`
	ShippedAt           *time.Time `json:"shipped_at"`
	CreatedAt           time.Time  `json:"created_at"`
}
