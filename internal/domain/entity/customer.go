package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Customer representa un cliente. Los pedidos guardan solo el nombre; la referencia al
// cliente se resuelve por nombre normalizado al crear backorders.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeCustomerName devuelve la forma canónica usada para buscar clientes por nombre:
// NFC, sin espacios repetidos y con case folding ("José  PÉREZ" == "josé pérez").
func NormalizeCustomerName(name string) string {
	s := norm.NFC.String(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	// Un Caser guarda estado: no se comparte entre goroutines.
	return cases.Fold().String(s)
}
