package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/bootstrap"
	"github.com/jhoicas/fulfillment-engine/pkg/config"
	"github.com/jhoicas/fulfillment-engine/pkg/logger"
)

// env estado compartido por los subcomandos de una ejecución.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	backend *bootstrap.Backend
	svc     *fulfillment.Service
}

// Opener abre el backend; los tests lo reemplazan para compartir un store en memoria.
type Opener func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*bootstrap.Backend, error)

// NewRootCmd arma el árbol de comandos de fulfillmentctl.
func NewRootCmd(open Opener) *cobra.Command {
	if open == nil {
		open = bootstrap.Open
	}
	e := &env{}
	var verbose bool

	root := &cobra.Command{
		Use:   "fulfillmentctl",
		Short: "Operación del motor de fulfillment",
		Long: `fulfillmentctl opera el motor de fulfillment directamente contra el almacenamiento:
migraciones, chequeo de conexiones, autorización de backorders, ajustes de stock
y emisión de tokens para la API.

Lee la misma configuración que la API (variables de entorno o .env).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			level := cfg.Log.Level
			if verbose {
				level = "debug"
			}
			lg := logger.New(logger.Config{Env: cfg.App.Env, Level: level, Service: "fulfillmentctl", Output: cmd.ErrOrStderr()})
			backend, err := open(cmd.Context(), cfg, lg.Zerolog())
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = lg.Zerolog()
			e.backend = backend
			e.svc = backend.Service(lg.Component("fulfillment"))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.backend != nil {
				e.backend.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Logs en nivel debug")

	root.AddCommand(
		newMigrateCmd(e),
		newCheckCmd(e),
		newBackordersCmd(e),
		newStockCmd(e),
		newProductsCmd(e),
		newTokenCmd(e),
	)
	return root
}

// Execute ejecuta fulfillmentctl con los argumentos del proceso.
func Execute() {
	root := NewRootCmd(nil)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
