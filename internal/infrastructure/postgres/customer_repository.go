package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// Create persiste un nuevo cliente junto con su nombre normalizado.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO customers (id, name, normalized_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, entity.NormalizeCustomerName(c.Name), c.Email, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert customer", err)
	}
	return nil
}

// FindByName busca por nombre normalizado; con homónimos devuelve el más antiguo.
func (r *CustomerRepo) FindByName(ctx context.Context, name string) (*entity.Customer, error) {
	normalized := entity.NormalizeCustomerName(name)
	if normalized == "" {
		return nil, nil
	}
	var c entity.Customer
	err := r.q.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers WHERE normalized_name = $1
		ORDER BY created_at LIMIT 1`, normalized,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find customer by name: %w", err)
	}
	return &c, nil
}
