package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	// FindByName busca por nombre normalizado (entity.NormalizeCustomerName). (nil, nil) si no hay coincidencia.
	FindByName(ctx context.Context, name string) (*entity.Customer, error)
}
