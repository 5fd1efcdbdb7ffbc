package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
)

// InventoryHandler productos, mutaciones de stock y audit trail de inventario (protegido).
type InventoryHandler struct {
	svc *fulfillment.Service
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc *fulfillment.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// CreateProduct alta de producto con stock inicial.
func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	p, err := h.svc.CreateProduct(c.UserContext(), in.SKU, in.Name, in.MinStockLevel, in.InitialStock, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(p))
}

// GetProduct producto con su stock actual.
func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.svc.GetProduct(c.UserContext(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toProductResponse(p))
}

// MutateStock godoc
// @Summary      Reposición o ajuste manual de stock
// @Tags         inventory
// @Security     Bearer
// @Param        id    path  string                    true  "ID del producto"
// @Param        body  body  dto.StockMutationRequest  true  "delta, change_type, notes"
// @Success      200   {object}  dto.ProductResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/stock [post]
func (h *InventoryHandler) MutateStock(c *fiber.Ctx) error {
	var in dto.StockMutationRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	p, err := h.svc.MutateStock(c.UserContext(), param(c, "id"), in.Delta, GetUserID(c), in.ChangeType, in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toProductResponse(p))
}

// Changes audit trail de inventario; ?product_id= filtra por producto, ?limit=&offset= pagina.
func (h *InventoryHandler) Changes(c *fiber.Ctx) error {
	pg, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	var productID *string
	if v := utils.CopyString(c.Query("product_id")); v != "" {
		productID = &v
	}
	list, err := h.svc.GetInventoryChanges(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	window, meta := page(list, pg)
	return c.JSON(fiber.Map{"total": meta.Total, "page": meta, "changes": toInventoryChangeResponses(window)})
}

// LowStock productos por debajo del stock mínimo con la cantidad sugerida de reposición.
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	list, err := h.svc.ListLowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "replenishments": list})
}
