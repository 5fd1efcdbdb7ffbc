package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

// writeErr traduce violaciones de constraint a errores de dominio; el resto se envuelve
// conservando el *pgconn.PgError para el clasificador de reintentos.
func writeErr(op string, err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicate)
	case pgForeignKeyViolation:
		return fmt.Errorf("%s: referencia inexistente: %w", op, domain.ErrNotFound)
	case pgCheckViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidInput)
	}
	return fmt.Errorf("%s: %w", op, err)
}
