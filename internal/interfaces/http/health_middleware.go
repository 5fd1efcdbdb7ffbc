package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
)

// recheckEvery tope de pings a la base disparados por requests mientras está caída.
const recheckEvery = time.Second

// HealthReporter estado del almacenamiento (lo implementa el Gateway de PostgreSQL).
type HealthReporter interface {
	Healthy() bool
	// Check vuelve a sondear la base y actualiza Healthy.
	Check(ctx context.Context) error
}

type alwaysHealthy struct{}

func (alwaysHealthy) Healthy() bool { return true }
func (alwaysHealthy) Check(context.Context) error { return nil }

// healthGate re-sondea la base desde el camino del request, como mucho una vez por intervalo,
// para que la API se recupere sin esperar al próximo tick del chequeo periódico.
type healthGate struct {
	h         HealthReporter
	every     time.Duration
	lastCheck atomic.Int64
}

func (g *healthGate) healthy(ctx context.Context) bool {
	if g.h.Healthy() {
		return true
	}
	now := time.Now().UnixNano()
	last := g.lastCheck.Load()
	if now-last < int64(g.every) || !g.lastCheck.CompareAndSwap(last, now) {
		return false
	}
	return g.h.Check(ctx) == nil
}

// RequireHealthyStore corta con 503 mientras la base siga caída tras el re-chequeo,
// en vez de dejar que cada request agote sus reintentos.
func RequireHealthyStore(h HealthReporter) fiber.Handler {
	gate := &healthGate{h: h, every: recheckEvery}
	return func(c *fiber.Ctx) error {
		if !gate.healthy(c.UserContext()) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "UNAVAILABLE",
				Message: "servicio temporalmente no disponible, intente más tarde",
			})
		}
		return c.Next()
	}
}
