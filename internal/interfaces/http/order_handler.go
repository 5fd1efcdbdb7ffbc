package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

// OrderHandler pedidos: alta, asignación de líneas, estados y changelog (protegido).
type OrderHandler struct {
	svc *fulfillment.Service
}

// NewOrderHandler construye el handler.
func NewOrderHandler(svc *fulfillment.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create godoc
// @Summary      Crear pedido y asignar sus líneas contra el stock
// @Tags         orders
// @Security     Bearer
// @Param        body  body  dto.CreateOrderRequest  true  "customer_name, items"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	items := make([]fulfillment.ItemRequest, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, fulfillment.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := h.svc.CreateOrder(c.UserContext(), in.CustomerName, items, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

// Get devuelve el pedido con sus líneas.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.svc.GetOrder(c.UserContext(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

// Allocate godoc
// @Summary      Agregar una línea al pedido (stock disponible o backorder)
// @Tags         orders
// @Security     Bearer
// @Param        id    path  string               true  "ID del pedido"
// @Param        body  body  dto.AllocateRequest  true  "product_id, quantity"
// @Success      201   {object}  dto.OrderItemResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items [post]
func (h *OrderHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	item, err := h.svc.Allocate(c.UserContext(), param(c, "id"), in.ProductID, in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderItemResponse(item))
}

// UpdateStatus cambia el estado; shipping_document solo aplica al pasar a shipped.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateOrderStatusRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	var doc *entity.ShippingDocument
	if in.ShippingDocument != nil {
		doc = &entity.ShippingDocument{
			Number:  in.ShippingDocument.Number,
			Carrier: in.ShippingDocument.Carrier,
			URL:     in.ShippingDocument.URL,
		}
	}
	order, err := h.svc.UpdateOrderStatus(c.UserContext(), param(c, "id"), in.Status, doc, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

// CompleteShipment cierra el pedido como enviado al 100%.
func (h *OrderHandler) CompleteShipment(c *fiber.Ctx) error {
	ok, err := h.svc.CompleteShipment(c.UserContext(), param(c, "id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"completed": ok})
}

// Changelog historial del pedido, paginado con ?limit=&offset=.
func (h *OrderHandler) Changelog(c *fiber.Ctx) error {
	pg, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.GetOrderChangelogs(c.UserContext(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	window, meta := page(list, pg)
	return c.JSON(fiber.Map{"total": meta.Total, "page": meta, "changelog": toChangelogResponses(window)})
}
