package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/fulfillment-engine/internal/application/dto"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición: productos con stock por debajo del mínimo.
type ReplenishmentUseCase struct {
	txRunner TxRunner
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(txRunner TxRunner) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{txRunner: txRunner}
}

// GenerateReplenishmentList devuelve los productos bajo el mínimo con la cantidad sugerida
// de pedido (hasta 1.5 veces el mínimo), ordenados por mayor déficit primero.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	var suggestions []dto.ReplenishmentSuggestionDTO
	err := uc.txRunner.Run(ctx, "list_low_stock", func(ctx context.Context, repos repository.Repos) error {
		products, err := repos.Products.ListBelowMinimum(ctx)
		if err != nil {
			return err
		}
		suggestions = make([]dto.ReplenishmentSuggestionDTO, 0, len(products))
		for _, p := range products {
			idealStock := (p.MinStockLevel*3 + 1) / 2
			suggested := idealStock - p.CurrentStock
			if suggested < 0 {
				suggested = 0
			}
			suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
				ProductID:         p.ID,
				SKU:               p.SKU,
				ProductName:       p.Name,
				CurrentStock:      p.CurrentStock,
				MinStockLevel:     p.MinStockLevel,
				IdealStock:        idealStock,
				SuggestedOrderQty: suggested,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.MinStockLevel - a.CurrentStock
		defB := b.MinStockLevel - b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.SKU < b.SKU
	})

	// Prioridad 1 = más urgente
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
