package entity

import "time"

// Acciones del changelog de pedidos.
const (
	OrderActionCreate       = "create"
	OrderActionUpdate       = "update"
	OrderActionStatusChange = "status_change"
	OrderActionErrorReport  = "error_report"
)

// OrderChangelog fila de auditoría, una por cada mutación de Order u OrderItem. Append-only.
type OrderChangelog struct {
	ID             string
	OrderID        string
	UserID         string
	Action         string
	Changes        map[string]any
	PreviousValues map[string]any
	Notes          *string
	Timestamp      time.Time
}
