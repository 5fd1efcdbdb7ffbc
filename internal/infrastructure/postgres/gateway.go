package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
)

var _ ports.TxRunner = (*Gateway)(nil)

// DB lo que el Gateway necesita del pool (*pgxpool.Pool lo cumple).
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// GatewayConfig parámetros de las transacciones.
type GatewayConfig struct {
	Isolation        string        // read_committed | repeatable_read | serializable
	StatementTimeout time.Duration // 0 = sin límite por sentencia
}

// Gateway punto único de acceso a PostgreSQL: transacciones con timeout por sentencia,
// reintento de la transacción completa ante errores transitorios y chequeo de salud.
type Gateway struct {
	db        DB
	retrier   *resilience.Retrier
	isolation pgx.TxIsoLevel
	timeout   time.Duration
	log       zerolog.Logger
	tracer    trace.Tracer
	healthy   atomic.Bool
}

// NewGateway construye el Gateway. El estado de salud inicia en true: el pool ya hizo ping.
func NewGateway(db DB, cfg GatewayConfig, retrier *resilience.Retrier, log zerolog.Logger) *Gateway {
	g := &Gateway{
		db:        db,
		retrier:   retrier,
		isolation: isoLevel(cfg.Isolation),
		timeout:   cfg.StatementTimeout,
		log:       log,
		tracer:    otel.Tracer("github.com/jhoicas/fulfillment-engine/internal/infrastructure/postgres"),
	}
	g.healthy.Store(true)
	return g
}

func isoLevel(s string) pgx.TxIsoLevel {
	switch s {
	case "serializable":
		return pgx.Serializable
	case "repeatable_read":
		return pgx.RepeatableRead
	default:
		return pgx.ReadCommitted
	}
}

// WithRetry ejecuta op hasta maxAttempts veces (<= 0 usa la política configurada).
// op debe ser una unidad repetible completa.
func (g *Gateway) WithRetry(ctx context.Context, label string, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		return g.retrier.Do(ctx, label, op)
	}
	return g.retrier.DoN(ctx, label, maxAttempts, op)
}

// WithTransaction ejecuta fn en una única transacción, sin reintento. Si fn falla se hace
// rollback (un fallo del rollback solo se registra) y se devuelve el error de fn.
func (g *Gateway) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: g.isolation})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if g.timeout > 0 {
		// SET no admite parámetros; el valor es un entero nuestro.
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", g.timeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			g.rollback(ctx, tx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}
	if err := fn(ctx, tx); err != nil {
		g.rollback(ctx, tx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return commitErr(err)
	}
	return nil
}

// commitErr: si el servidor respondió al COMMIT con un error, la transacción quedó
// descartada y el error se clasifica como cualquier otro (40001 se reintenta). Si no hubo
// respuesta, el resultado es desconocido y repetir podría aplicar dos veces la mutación.
func commitErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return resilience.MarkPermanent(fmt.Errorf("commit transaction (resultado desconocido): %w", err))
}

func (g *Gateway) rollback(ctx context.Context, tx pgx.Tx) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := tx.Rollback(rctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		g.log.Error().Err(err).Msg("rollback fallido")
	}
}

// Run implementa ports.TxRunner: cada intento es una transacción nueva con repos atados a ella.
func (g *Gateway) Run(ctx context.Context, label string, fn func(ctx context.Context, repos repository.Repos) error) error {
	ctx, span := g.tracer.Start(ctx, "tx "+label, trace.WithAttributes(attribute.String("db.system", "postgresql")))
	defer span.End()

	attempts := 0
	err := g.retrier.Do(ctx, label, func(ctx context.Context) error {
		attempts++
		return g.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return fn(ctx, NewRepos(tx))
		})
	})
	span.SetAttributes(attribute.Int("tx.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
	}
	return err
}

// NewRepos repositorios atados a q (pool o tx).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Products:         NewProductRepository(q),
		Customers:        NewCustomerRepository(q),
		Orders:           NewOrderRepository(q),
		OrderItems:       NewOrderItemRepository(q),
		UnshippedItems:   NewUnshippedItemRepository(q),
		InventoryChanges: NewInventoryChangeRepository(q),
		OrderChangelogs:  NewOrderChangelogRepository(q),
	}
}

// Healthy último resultado del chequeo de salud.
func (g *Gateway) Healthy() bool { return g.healthy.Load() }

// Check hace un ping con timeout y actualiza el estado, registrando las transiciones.
func (g *Gateway) Check(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := g.db.Ping(pctx)
	was := g.healthy.Swap(err == nil)
	switch {
	case err != nil && was:
		g.log.Error().Err(err).Msg("conexión a la base de datos perdida")
	case err == nil && !was:
		g.log.Info().Msg("conexión a la base de datos recuperada")
	}
	return err
}

// StartHealthCheck lanza el chequeo periódico hasta que ctx termine.
func (g *Gateway) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = g.Check(ctx)
			}
		}
	}()
}
