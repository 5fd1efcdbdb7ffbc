package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// requestError error de forma del request (400), antes de llegar al núcleo.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

// parseBody decodifica el JSON y valida los tags `validate`.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &requestError{code: "INVALID_BODY", message: "cuerpo inválido"}
	}
	if err := validate.Struct(out); err != nil {
		return &requestError{code: "VALIDATION", message: validationMessage(err)}
	}
	return nil
}

// parsePage lee ?limit=&offset= con los valores por defecto de dto.PageRequest.
func parsePage(c *fiber.Ctx) (dto.PageRequest, error) {
	var p dto.PageRequest
	if err := c.QueryParser(&p); err != nil {
		return p, &requestError{code: "INVALID_QUERY", message: "paginación inválida"}
	}
	p.DefaultPage()
	if err := validate.Struct(p); err != nil {
		return p, &requestError{code: "VALIDATION", message: validationMessage(err)}
	}
	return p, nil
}

// page recorta items a la ventana pedida. El total siempre es el del listado completo.
func page[T any](items []T, p dto.PageRequest) ([]T, dto.PageResponse) {
	meta := dto.PageResponse{Limit: p.Limit, Offset: p.Offset, Total: len(items)}
	if p.Offset >= len(items) {
		return []T{}, meta
	}
	end := min(p.Offset+p.Limit, len(items))
	return items[p.Offset:end], meta
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "datos inválidos"
	}
	fe := ve[0]
	return "campo " + fe.Field() + " inválido (" + fe.Tag() + ")"
}

// writeError traduce errores de dominio a HTTP. Los detalles de reintentos nunca salen.
func writeError(c *fiber.Ctx, err error) error {
	var stock *domain.InsufficientStockError
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: reqErr.code, Message: reqErr.message})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: stock.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "recurso duplicado"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: domain.ErrUnavailable.Error()})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error no mapeado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// param copia el parámetro de ruta: fiber reutiliza el buffer del request y el valor
// puede terminar guardado en el store.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}
