package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
)

// BackorderHandler cola de backorders: revisión, autorización y conciliación (protegido).
type BackorderHandler struct {
	svc *fulfillment.Service
}

// NewBackorderHandler construye el handler.
func NewBackorderHandler(svc *fulfillment.Service) *BackorderHandler {
	return &BackorderHandler{svc: svc}
}

// Pending backorders sin autorizar ni enviar, más antiguos primero.
func (h *BackorderHandler) Pending(c *fiber.Ctx) error {
	list, err := h.svc.ListUnshippedItemsForAuthorization(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "items": toUnshippedResponses(list)})
}

// Authorize autoriza en bloque; repetir es seguro.
func (h *BackorderHandler) Authorize(c *fiber.Ctx) error {
	var in dto.AuthorizeUnshippedRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.AuthorizeUnshippedItems(c.UserContext(), in.IDs, GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reconcile marca backorders autorizados como enviados en un pedido de reemplazo.
func (h *BackorderHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileShippedRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.ReconcileShipped(c.UserContext(), in.IDs, in.NewOrderID, GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
