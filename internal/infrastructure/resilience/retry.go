package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
)

// Policy parámetros de reintento: delay = BaseDelay * 2^(intento-1) + rand(0, MaxJitter),
// acotado por MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxJitter   time.Duration
}

// DefaultPolicy 5 intentos, base 200ms, tope 10s, jitter hasta 500ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Backoff calcula la espera antes del siguiente intento tras fallar el intento `attempt` (1..n).
// jitter debe estar en [0, MaxJitter).
func (p Policy) Backoff(attempt int, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	delay := p.BaseDelay*time.Duration(1<<shift) + jitter
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// ExhaustedError se devuelve cuando un error transitorio persiste tras MaxAttempts.
// errors.Is(err, domain.ErrUnavailable) es true; el detalle queda solo para los logs.
type ExhaustedError struct {
	Label    string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d intentos agotados: %v", e.Label, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == domain.ErrUnavailable }

// Sleeper espera d o hasta que ctx termine.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrier ejecuta operaciones completas con reintento ante errores transitorios.
type Retrier struct {
	policy    Policy
	log       zerolog.Logger
	classify  func(error) bool
	sleep     Sleeper
	jitterFor func(max time.Duration) time.Duration
}

// Option personaliza un Retrier.
type Option func(*Retrier)

// WithSleeper reemplaza la espera real (tests).
func WithSleeper(s Sleeper) Option { return func(r *Retrier) { r.sleep = s } }

// WithClassifier reemplaza IsTransient.
func WithClassifier(fn func(error) bool) Option { return func(r *Retrier) { r.classify = fn } }

// NewRetrier construye el Retrier. MaxAttempts <= 0 se normaliza a 1.
func NewRetrier(policy Policy, log zerolog.Logger, opts ...Option) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	r := &Retrier{
		policy:   policy,
		log:      log,
		classify: IsTransient,
		sleep:    sleepCtx,
		jitterFor: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return rand.N(max)
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Policy devuelve la política configurada.
func (r *Retrier) Policy() Policy { return r.policy }

// Do ejecuta op con la política por defecto del Retrier.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	return r.DoN(ctx, label, r.policy.MaxAttempts, op)
}

// DoN ejecuta op hasta maxAttempts veces. Los errores fatales se devuelven de inmediato;
// los transitorios se reintentan con backoff exponencial y jitter. op debe ser una unidad
// repetible completa (una transacción entera), nunca una secuencia parcial de sentencias.
func (r *Retrier) DoN(ctx context.Context, label string, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.log.Info().Str("op", label).Int("attempt", attempt).Msg("operación recuperada tras reintento")
			}
			return nil
		}
		if !r.classify(err) {
			return err
		}
		last = err
		if attempt == maxAttempts {
			break
		}
		delay := r.policy.Backoff(attempt, r.jitterFor(r.policy.MaxJitter))
		r.log.Warn().Err(err).
			Str("op", label).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("error transitorio, reintentando")
		if serr := r.sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%s: espera de reintento: %w", label, serr)
		}
	}
	r.log.Error().Err(last).Str("op", label).Int("attempts", maxAttempts).Msg("reintentos agotados")
	return &ExhaustedError{Label: label, Attempts: maxAttempts, Last: last}
}
