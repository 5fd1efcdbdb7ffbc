package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest línea solicitada al crear un pedido.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	CustomerName string             `json:"customer_name" validate:"required,min=1,max=200"`
	Items        []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AllocateRequest body para POST /api/orders/:id/items.
type AllocateRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// ShippingDocumentRequest documento de envío opcional al pasar a shipped.
type ShippingDocumentRequest struct {
	Number  string `json:"number" validate:"required,max=100"`
	Carrier string `json:"carrier,omitempty" validate:"omitempty,max=100"`
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
}

// UpdateOrderStatusRequest body para PATCH /api/orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status           string                   `json:"status" validate:"required,oneof=pending picked partially_shipped shipped cancelled"`
	ShippingDocument *ShippingDocumentRequest `json:"shipping_document,omitempty"`
}

// OrderItemResponse línea de pedido.
type OrderItemResponse struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	ShippedQuantity int    `json:"shipped_quantity"`
	ShippingStatus  string `json:"shipping_status"`
}

// OrderResponse pedido con sus líneas.
type OrderResponse struct {
	ID                  string              `json:"id"`
	OrderNumber         string              `json:"order_number"`
	Status              string              `json:"status"`
	CustomerName        string              `json:"customer_name"`
	OrderDate           time.Time           `json:"order_date"`
	PercentageShipped   decimal.Decimal     `json:"percentage_shipped"`
	HasShippingDocument bool                `json:"has_shipping_document"`
	ActualShippingDate  *time.Time          `json:"actual_shipping_date,omitempty"`
	LastUpdated         time.Time           `json:"last_updated"`
	Items               []OrderItemResponse `json:"items,omitempty"`
}

// OrderChangelogResponse fila del historial de un pedido.
type OrderChangelogResponse struct {
	ID             string         `json:"id"`
	OrderID        string         `json:"order_id"`
	UserID         string         `json:"user_id"`
	Action         string         `json:"action"`
	Changes        map[string]any `json:"changes"`
	PreviousValues map[string]any `json:"previous_values"`
	Notes          *string        `json:"notes"`
	Timestamp      time.Time      `json:"timestamp"`
}
