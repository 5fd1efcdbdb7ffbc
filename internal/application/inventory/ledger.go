package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/audit"
	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// Ledger es el dueño exclusivo de Product.CurrentStock. Cada mutación bloquea la fila del
// producto (SELECT FOR UPDATE), escribe el nuevo stock y agrega exactamente una fila
// InventoryChange en la misma transacción.
type Ledger struct {
	txRunner TxRunner
	trail    *audit.Trail
	log      zerolog.Logger
}

// NewLedger construye el ledger de inventario.
func NewLedger(txRunner TxRunner, trail *audit.Trail, log zerolog.Logger) *Ledger {
	return &Ledger{txRunner: txRunner, trail: trail, log: log}
}

// Mutation entrada para MutateStockInTx.
type Mutation struct {
	Delta      int // negativo consume, positivo repone
	ActorID    string
	ChangeType string
	Reference  *string
	Notes      *string
	// ClampAtZero permite consumir solo lo disponible cuando Delta excede el stock.
	// Lo usa únicamente la asignación parcial, que ya precalcula un delta no negativo.
	ClampAtZero bool
}

// MutateStock aplica delta al stock del producto en su propia transacción (reintentable completa).
func (l *Ledger) MutateStock(ctx context.Context, productID string, delta int, actorID, changeType string, notes *string) (*entity.Product, error) {
	if productID == "" || actorID == "" || delta == 0 || !entity.IsValidChangeType(changeType) {
		return nil, domain.ErrInvalidInput
	}
	var product *entity.Product
	err := l.txRunner.Run(ctx, "mutate_stock", func(ctx context.Context, repos repository.Repos) error {
		p, err := repos.Products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("producto", productID)
		}
		if _, err := l.MutateStockInTx(ctx, repos, p, Mutation{
			Delta:      delta,
			ActorID:    actorID,
			ChangeType: changeType,
			Notes:      notes,
		}); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// MutateStockInTx aplica la mutación sobre un producto ya bloqueado por el caller dentro de su
// transacción. Actualiza product en memoria. Un delta efectivo de cero no escribe nada y
// devuelve (nil, nil): no hay cambio de stock que auditar.
func (l *Ledger) MutateStockInTx(ctx context.Context, repos repository.Repos, product *entity.Product, m Mutation) (*entity.InventoryChange, error) {
	previous := product.CurrentStock
	delta := m.Delta
	newStock := previous + delta
	if newStock < 0 {
		if !m.ClampAtZero {
			l.log.Error().
				Str("product_id", product.ID).
				Int("current_stock", previous).
				Int("delta", delta).
				Str("change_type", m.ChangeType).
				Msg("mutación rechazada: el stock quedaría negativo")
			return nil, &domain.InsufficientStockError{ProductID: product.ID, Available: previous, Requested: -delta}
		}
		newStock = 0
	}
	if newStock == previous {
		return nil, nil
	}

	now := time.Now().UTC()
	if err := repos.Products.UpdateStock(ctx, product.ID, newStock, now); err != nil {
		return nil, err
	}
	product.CurrentStock = newStock
	product.LastStockUpdate = &now
	product.UpdatedAt = now

	change, err := l.trail.RecordInventoryChange(ctx, repos, audit.InventoryEntry{
		ProductID:        product.ID,
		UserID:           m.ActorID,
		ChangeType:       m.ChangeType,
		PreviousQuantity: previous,
		NewQuantity:      newStock,
		Reference:        m.Reference,
		Notes:            m.Notes,
	})
	if err != nil {
		return nil, err
	}
	if product.BelowMinimum() {
		l.log.Warn().
			Str("product_id", product.ID).
			Str("sku", product.SKU).
			Int("current_stock", newStock).
			Int("min_stock_level", product.MinStockLevel).
			Msg("producto por debajo del stock mínimo")
	}
	return change, nil
}

// CreateProduct da de alta un producto. El stock inicial entra por el ledger como una
// reposición, para que el audit trail reconstruya el stock desde cero.
func (l *Ledger) CreateProduct(ctx context.Context, sku, name string, minStockLevel, initialStock int, actorID string) (*entity.Product, error) {
	sku = strings.TrimSpace(sku)
	name = strings.TrimSpace(name)
	if sku == "" || name == "" || actorID == "" || minStockLevel < 0 || initialStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	var product *entity.Product
	err := l.txRunner.Run(ctx, "create_product", func(ctx context.Context, repos repository.Repos) error {
		// La restricción única sigue siendo la garantía ante altas concurrentes.
		existing, err := repos.Products.GetBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("sku %s ya registrado en %s: %w", sku, existing.ID, domain.ErrDuplicate)
		}
		now := time.Now().UTC()
		p := &entity.Product{
			ID:            uuid.New().String(),
			SKU:           sku,
			Name:          name,
			MinStockLevel: minStockLevel,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
		if initialStock > 0 {
			if _, err := l.MutateStockInTx(ctx, repos, p, Mutation{
				Delta:      initialStock,
				ActorID:    actorID,
				ChangeType: entity.ChangeTypeStockReplenishment,
			}); err != nil {
				return err
			}
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct devuelve el producto con su stock actual.
func (l *Ledger) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	var product *entity.Product
	err := l.txRunner.Run(ctx, "get_product", func(ctx context.Context, repos repository.Repos) error {
		p, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("producto", productID)
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}
