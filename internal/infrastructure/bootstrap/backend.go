package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/memory"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/postgres"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/redislock"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
	"github.com/jhoicas/fulfillment-engine/pkg/config"
)

// Backend almacenamiento y locks listos para construir el servicio.
type Backend struct {
	TxRunner ports.TxRunner
	Locker   ports.ProductLocker
	Gateway  *postgres.Gateway // nil con el store en memoria

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Healthy estado del store; el store en memoria siempre está sano.
func (b *Backend) Healthy() bool {
	if b.Gateway == nil {
		return true
	}
	return b.Gateway.Healthy()
}

// Check re-sondea la base; con el store en memoria no hay nada que sondear.
func (b *Backend) Check(ctx context.Context) error {
	if b.Gateway == nil {
		return nil
	}
	return b.Gateway.Check(ctx)
}

// Service construye el servicio de fulfillment sobre el backend.
func (b *Backend) Service(log zerolog.Logger) *fulfillment.Service {
	return fulfillment.Build(b.TxRunner, b.Locker, log)
}

// Redis cliente del lock distribuido; nil si no está configurado.
func (b *Backend) Redis() *redis.Client { return b.redis }

// Close libera pool y cliente Redis.
func (b *Backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// RetryPolicy traduce la configuración a la política de reintentos.
func RetryPolicy(cfg config.RetryConfig) resilience.Policy {
	return resilience.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		MaxJitter:   cfg.MaxJitter,
	}
}

// Open abre el store configurado (PostgreSQL o memoria) y, si hay Redis, el lock distribuido
// por producto. La conexión inicial a PostgreSQL se reintenta con la misma política que las
// transacciones.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	retrier := resilience.NewRetrier(RetryPolicy(cfg.Retry), log.With().Str("component", "retry").Logger())
	b := &Backend{Locker: ports.NoopLocker{}}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("usando store en memoria: los datos se pierden al reiniciar")
		b.TxRunner = memory.NewStore(retrier)
	default:
		err := retrier.Do(ctx, "connect_db", func(ctx context.Context) error {
			pool, err := postgres.NewPool(ctx, cfg.DB)
			if err != nil {
				// NewPool no conserva el tipo del error de red: toda falla de conexión se reintenta.
				return resilience.MarkTransient(err)
			}
			b.pool = pool
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.Gateway = postgres.NewGateway(b.pool, postgres.GatewayConfig{
			Isolation:        cfg.DB.TxIsolation,
			StatementTimeout: cfg.DB.StatementTimeout,
		}, retrier, log.With().Str("component", "postgres").Logger())
		b.TxRunner = b.Gateway
	}

	if cfg.Redis.Enabled() {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lockLog := log.With().Str("component", "redislock").Logger()
		if err := redislock.Ping(ctx, b.redis); err != nil {
			// El lock es best effort: se arranca igual y cada Lock degrada a solo bloqueo de fila.
			lockLog.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Redis no responde al arrancar")
		}
		b.Locker = redislock.New(b.redis, cfg.Redis.LockTTL, lockLog)
	}
	return b, nil
}
