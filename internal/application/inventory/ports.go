package inventory

import "github.com/jhoicas/fulfillment-engine/internal/application/ports"

// TxRunner alias local para no acoplar los callers al paquete ports.
type TxRunner = ports.TxRunner
