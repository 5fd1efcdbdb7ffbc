package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
)

// recordingSleeper registra las esperas sin dormir.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestRetrier(s *recordingSleeper) *resilience.Retrier {
	return resilience.NewRetrier(resilience.DefaultPolicy(), zerolog.Nop(), resilience.WithSleeper(s.sleep))
}

func TestDo_TransitorioSeReintentaHastaExito(t *testing.T) {
	s := &recordingSleeper{}
	r := newTestRetrier(s)

	calls := 0
	err := r.Do(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "08006"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, s.delays, 2)
}

func TestDo_FatalNoSeReintenta(t *testing.T) {
	s := &recordingSleeper{}
	r := newTestRetrier(s)

	calls := 0
	err := r.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return domain.ErrInvalidInput
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
}

func TestDo_AgotaIntentosYDevuelveUnavailable(t *testing.T) {
	s := &recordingSleeper{}
	r := newTestRetrier(s)

	calls := 0
	err := r.Do(context.Background(), "allocate", func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: resilience.PgErrDeadlockDetected}
	})

	require.Error(t, err)
	assert.Equal(t, 5, calls, "DefaultPolicy reintenta hasta 5 veces")
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	var exhausted *resilience.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)

	// Esperas crecientes: 4 esperas entre 5 intentos.
	require.Len(t, s.delays, 4)
	for i := 1; i < len(s.delays); i++ {
		assert.Greater(t, s.delays[i], s.delays[i-1]-500*time.Millisecond,
			"el backoff exponencial domina al jitter")
	}
}

func TestDoN_RespetaMaxAttempts(t *testing.T) {
	r := newTestRetrier(&recordingSleeper{})
	calls := 0
	err := r.DoN(context.Background(), "x", 2, func(context.Context) error {
		calls++
		return resilience.MarkTransient(errors.New("boom"))
	})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextoCanceladoDuranteEspera(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := resilience.NewRetrier(resilience.DefaultPolicy(), zerolog.Nop(),
		resilience.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	err := r.Do(ctx, "x", func(context.Context) error {
		return resilience.MarkTransient(errors.New("conexión perdida"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Backoff(t *testing.T) {
	p := resilience.Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, MaxJitter: 500 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(1, 0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2, 0))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3, 0))
	assert.Equal(t, 450*time.Millisecond, p.Backoff(3, 50*time.Millisecond))
	assert.Equal(t, time.Second, p.Backoff(10, 0), "tope MaxDelay")
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conexión", &pgconn.PgError{Code: "08006"}, true},
		{"serialización", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, true},
		{"recursos", &pgconn.PgError{Code: "53300"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation envuelto", fmt.Errorf("update stock: %w", &pgconn.PgError{Code: "23514"}), false},
		{"serialización envuelta", fmt.Errorf("update stock: %w", &pgconn.PgError{Code: "40001"}), true},
		{"dominio", domain.ErrNotFound, false},
		{"cancelado", context.Canceled, false},
		{"marcado", resilience.MarkTransient(errors.New("x")), true},
		{"permanente", resilience.MarkPermanent(&pgconn.PgError{Code: "08006"}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resilience.IsTransient(tc.err))
		})
	}
}
