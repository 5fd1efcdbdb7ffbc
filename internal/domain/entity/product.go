package entity

import "time"

// Product representa un producto del inventario. CurrentStock es el contador autoritativo
// del ledger; solo el motor de inventario lo modifica (vía inventory.Ledger).
type Product struct {
	ID              string
	SKU             string // único
	Name            string
	CurrentStock    int // nunca negativo
	MinStockLevel   int
	LastStockUpdate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BelowMinimum indica si el stock actual está por debajo del nivel mínimo configurado.
func (p *Product) BelowMinimum() bool {
	return p.CurrentStock < p.MinStockLevel
}
