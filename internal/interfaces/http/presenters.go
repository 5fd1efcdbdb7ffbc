package http

import (
	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

func toOrderResponse(o *entity.Order) dto.OrderResponse {
	out := dto.OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		Status:              o.Status,
		CustomerName:        o.CustomerName,
		OrderDate:           o.OrderDate,
		PercentageShipped:   o.PercentageShipped,
		HasShippingDocument: o.HasShippingDocument,
		ActualShippingDate:  o.ActualShippingDate,
		LastUpdated:         o.LastUpdated,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, toOrderItemResponse(it))
	}
	return out
}

func toOrderItemResponse(it *entity.OrderItem) dto.OrderItemResponse {
	return dto.OrderItemResponse{
		ID:              it.ID,
		OrderID:         it.OrderID,
		ProductID:       it.ProductID,
		Quantity:        it.Quantity,
		ShippedQuantity: it.ShippedQuantity,
		ShippingStatus:  it.ShippingStatus,
	}
}

func toUnshippedResponses(list []*entity.UnshippedItem) []dto.UnshippedItemResponse {
	out := make([]dto.UnshippedItemResponse, 0, len(list))
	for _, bo := range list {
		out = append(out, dto.UnshippedItemResponse{
			ID:                  bo.ID,
			OrderID:             bo.OrderID,
			OrderItemID:         bo.OrderItemID,
			ProductID:           bo.ProductID,
			Quantity:            bo.Quantity,
			CustomerName:        bo.CustomerName,
			CustomerID:          bo.CustomerID,
			OriginalOrderNumber: bo.OriginalOrderNumber,
			Authorized:          bo.Authorized,
			AuthorizedBy:        bo.AuthorizedBy,
			AuthorizedAt:        bo.AuthorizedAt,
			Shipped:             bo.Shipped,
			ShippedInOrderID:    bo.ShippedInOrderID,
			ShippedAt:           bo.ShippedAt,
			CreatedAt:           bo.CreatedAt,
		})
	}
	return out
}

func toInventoryChangeResponses(list []*entity.InventoryChange) []dto.InventoryChangeResponse {
	out := make([]dto.InventoryChangeResponse, 0, len(list))
	for _, c := range list {
		out = append(out, dto.InventoryChangeResponse{
			ID:               c.ID,
			ProductID:        c.ProductID,
			UserID:           c.UserID,
			ChangeType:       c.ChangeType,
			PreviousQuantity: c.PreviousQuantity,
			NewQuantity:      c.NewQuantity,
			QuantityChanged:  c.QuantityChanged,
			Reference:        c.Reference,
			Notes:            c.Notes,
			Timestamp:        c.Timestamp,
		})
	}
	return out
}

func toChangelogResponses(list []*entity.OrderChangelog) []dto.OrderChangelogResponse {
	out := make([]dto.OrderChangelogResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.OrderChangelogResponse{
			ID:             e.ID,
			OrderID:        e.OrderID,
			UserID:         e.UserID,
			Action:         e.Action,
			Changes:        e.Changes,
			PreviousValues: e.PreviousValues,
			Notes:          e.Notes,
			Timestamp:      e.Timestamp,
		})
	}
	return out
}

func toProductResponse(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		CurrentStock:    p.CurrentStock,
		MinStockLevel:   p.MinStockLevel,
		LastStockUpdate: p.LastStockUpdate,
	}
}
