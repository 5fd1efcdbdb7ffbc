package redislock

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
)

var _ ports.ProductLocker = (*ProductLocker)(nil)

const keyPrefix = "fulfillment:product:"

// Obtainer lo que se usa de *redislock.Client.
type Obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// ProductLocker lock distribuido por producto entre instancias. Es best effort: si Redis no
// responde o el lock no se obtiene a tiempo se sigue sin él, porque el bloqueo de fila en
// PostgreSQL sigue siendo el que garantiza la consistencia del stock.
type ProductLocker struct {
	locker Obtainer
	ttl    time.Duration
	wait   redislock.RetryStrategy
	log    zerolog.Logger
}

// New construye el locker sobre un cliente go-redis.
func New(rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *ProductLocker {
	return NewWithObtainer(redislock.New(rdb), ttl, log)
}

// NewWithObtainer permite inyectar el cliente de locks.
func NewWithObtainer(o Obtainer, ttl time.Duration, log zerolog.Logger) *ProductLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &ProductLocker{
		locker: o,
		ttl:    ttl,
		wait:   redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
		log:    log,
	}
}

// Lock toma los locks en orden ascendente de ID (mismo orden que los bloqueos de fila) y
// devuelve la función que los libera.
func (l *ProductLocker) Lock(ctx context.Context, productIDs []string) func() {
	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)

	var held []*redislock.Lock
	var last string
	for _, id := range ids {
		if id == "" || id == last {
			continue
		}
		last = id
		lock, err := l.locker.Obtain(ctx, keyPrefix+id, l.ttl, &redislock.Options{RetryStrategy: l.wait})
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			l.log.Warn().Str("product_id", id).Msg("lock de producto no obtenido; se continúa con el bloqueo de fila")
			continue
		case err != nil:
			l.log.Warn().Err(err).Str("product_id", id).Msg("error obteniendo lock de producto; se continúa sin él")
			continue
		}
		held = append(held, lock)
	}

	return func() {
		// ctx del caller puede estar cancelado; liberar igual.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.log.Warn().Err(err).Str("key", held[i].Key()).Msg("no se pudo liberar el lock")
			}
		}
	}
}

// Ping verifica la conexión con Redis.
func Ping(ctx context.Context, rdb redis.UniversalClient) error {
	return rdb.Ping(ctx).Err()
}
