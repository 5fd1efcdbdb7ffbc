package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service   *fulfillment.Service
	Health    HealthReporter // nil = siempre sano (store en memoria)
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	health := deps.Health
	if health == nil {
		health = alwaysHealthy{}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if !health.Healthy() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	})

	api := app.Group("/api")
	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer), RequireHealthyStore(health))
	operators := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse)
	admins := RequireRole(jwt.RoleAdmin)

	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Service)
	orders.Post("/", orderHandler.Create)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/items", orderHandler.Allocate)
	orders.Patch("/:id/status", operators, orderHandler.UpdateStatus)
	orders.Post("/:id/complete", operators, orderHandler.CompleteShipment)
	orders.Get("/:id/changelog", orderHandler.Changelog)

	backorders := protected.Group("/backorders")
	backorderHandler := NewBackorderHandler(deps.Service)
	backorders.Get("/pending", operators, backorderHandler.Pending)
	backorders.Post("/authorize", admins, backorderHandler.Authorize)
	backorders.Post("/reconcile", operators, backorderHandler.Reconcile)

	inv := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Service)
	inv.Post("/products", admins, inventoryHandler.CreateProduct)
	inv.Get("/products/:id", inventoryHandler.GetProduct)
	inv.Post("/products/:id/stock", operators, inventoryHandler.MutateStock)
	inv.Get("/changes", inventoryHandler.Changes)
	inv.Get("/low-stock", inventoryHandler.LowStock)
}
