package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/redislock"
)

var errNoDatabase = errors.New("el comando requiere STORE_DRIVER=postgres")

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del esquema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw := e.backend.Gateway
			if gw == nil {
				return errNoDatabase
			}
			applied, err := gw.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrar: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(out(cmd), "Esquema al día, sin migraciones pendientes")
				return nil
			}
			fmt.Fprintf(out(cmd), "Migraciones aplicadas: %v\n", applied)
			return nil
		},
	}
}

func newCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verifica la conexión con PostgreSQL y Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := out(cmd)
			if gw := e.backend.Gateway; gw != nil {
				start := time.Now()
				if err := gw.Check(cmd.Context()); err != nil {
					return fmt.Errorf("PostgreSQL: %w", err)
				}
				fmt.Fprintf(w, "PostgreSQL OK (%s)\n", time.Since(start).Round(time.Millisecond))
			} else {
				fmt.Fprintln(w, "Store en memoria: sin base de datos que verificar")
			}

			if client := e.backend.Redis(); client != nil {
				if err := redislock.Ping(cmd.Context(), client); err != nil {
					return fmt.Errorf("Redis: %w", err)
				}
				fmt.Fprintf(w, "Redis OK (%s)\n", e.cfg.Redis.Address)
			} else {
				fmt.Fprintln(w, "Redis no configurado: locks solo por fila")
			}
			return nil
		},
	}
}
