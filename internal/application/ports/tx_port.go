package ports

import (
	"context"

	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción, pasando repositorios atados a esa tx.
// La implementación reintenta la transacción COMPLETA ante errores transitorios, por lo que
// fn debe ser repetible: todo su efecto vive dentro de la tx y se descarta con el rollback.
// label identifica la operación en logs y trazas.
type TxRunner interface {
	Run(ctx context.Context, label string, fn func(ctx context.Context, repos repository.Repos) error) error
}

// ProductLocker serializa (best effort) operaciones sobre los mismos productos entre instancias.
// Nunca falla: si el lock no se obtiene, el bloqueo de fila en la BD sigue siendo autoritativo.
type ProductLocker interface {
	Lock(ctx context.Context, productIDs []string) (release func())
}

// NoopLocker ProductLocker que no bloquea nada (una sola instancia o sin Redis).
type NoopLocker struct{}

// Lock no hace nada.
func (NoopLocker) Lock(context.Context, []string) func() { return func() {} }
