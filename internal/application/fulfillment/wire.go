package fulfillment

import (
	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/allocation"
	"github.com/jhoicas/fulfillment-engine/internal/application/audit"
	"github.com/jhoicas/fulfillment-engine/internal/application/backorder"
	"github.com/jhoicas/fulfillment-engine/internal/application/inventory"
	"github.com/jhoicas/fulfillment-engine/internal/application/orders"
	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
)

// Build arma el núcleo completo sobre un TxRunner (Gateway de PostgreSQL o store en memoria).
func Build(txRunner ports.TxRunner, locker ports.ProductLocker, log zerolog.Logger) *Service {
	trail := audit.NewTrail(txRunner)
	ledger := inventory.NewLedger(txRunner, trail, log.With().Str("component", "ledger").Logger())
	queue := backorder.NewQueue(txRunner)
	machine := orders.NewMachine(txRunner, trail, queue)
	engine := allocation.NewEngine(txRunner, locker, ledger, trail, queue, machine,
		log.With().Str("component", "allocation").Logger())
	return NewService(Deps{
		TxRunner:      txRunner,
		Locker:        locker,
		Ledger:        ledger,
		Trail:         trail,
		Queue:         queue,
		Machine:       machine,
		Engine:        engine,
		Replenishment: inventory.NewReplenishmentUseCase(txRunner),
	})
}
