package postgres

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
)

// fakeTx registra sentencias y el desenlace de la transacción.
type fakeTx struct {
	pgx.Tx
	execs       []string
	commitErr   error
	rollbackErr error
	committed   bool
	rolledBack  bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("SET"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return t.rollbackErr
}

type fakeDB struct {
	txs      []*fakeTx
	next     func(n int) *fakeTx
	beginErr error
	opts     []pgx.TxOptions
	pingErr  error
}

func (d *fakeDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	d.opts = append(d.opts, opts)
	tx := &fakeTx{}
	if d.next != nil {
		tx = d.next(len(d.txs))
	}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) Ping(context.Context) error { return d.pingErr }

func newTestGateway(db DB) *Gateway {
	r := resilience.NewRetrier(resilience.DefaultPolicy(), zerolog.Nop(),
		resilience.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return NewGateway(db, GatewayConfig{Isolation: "serializable", StatementTimeout: 5 * time.Second}, r, zerolog.Nop())
}

func TestWithTransaction_CommitsAndSetsStatementTimeout(t *testing.T) {
	db := &fakeDB{}
	g := newTestGateway(db)

	err := g.WithTransaction(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "UPDATE products SET current_stock = 1")
		return err
	})

	require.NoError(t, err)
	require.Len(t, db.txs, 1)
	tx := db.txs[0]
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, []string{"SET LOCAL statement_timeout = 5000", "UPDATE products SET current_stock = 1"}, tx.execs)
	assert.Equal(t, pgx.Serializable, db.opts[0].IsoLevel)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := &fakeDB{}
	g := newTestGateway(db)

	err := g.WithTransaction(context.Background(), func(context.Context, pgx.Tx) error {
		return domain.ErrInvalidInput
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, db.txs[0].rolledBack)
	assert.False(t, db.txs[0].committed)
}

func TestWithTransaction_RollbackFailureDoesNotMaskError(t *testing.T) {
	db := &fakeDB{next: func(int) *fakeTx { return &fakeTx{rollbackErr: errors.New("conexión cerrada")} }}
	g := newTestGateway(db)

	err := g.WithTransaction(context.Background(), func(context.Context, pgx.Tx) error {
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestWithTransaction_CommitErrors(t *testing.T) {
	t.Run("serialización reportada por el servidor es transitoria", func(t *testing.T) {
		db := &fakeDB{next: func(int) *fakeTx { return &fakeTx{commitErr: &pgconn.PgError{Code: "40001"}} }}
		err := newTestGateway(db).WithTransaction(context.Background(), func(context.Context, pgx.Tx) error { return nil })
		assert.True(t, resilience.IsTransient(err))
	})
	t.Run("conexión perdida en COMMIT no se reintenta", func(t *testing.T) {
		db := &fakeDB{next: func(int) *fakeTx { return &fakeTx{commitErr: io.ErrUnexpectedEOF} }}
		err := newTestGateway(db).WithTransaction(context.Background(), func(context.Context, pgx.Tx) error { return nil })
		require.Error(t, err)
		assert.False(t, resilience.IsTransient(err))
	})
}

func TestRun_RetriesWholeTransaction(t *testing.T) {
	db := &fakeDB{}
	g := newTestGateway(db)

	calls := 0
	err := g.Run(context.Background(), "mutate_stock", func(_ context.Context, repos repository.Repos) error {
		calls++
		require.NotNil(t, repos.Products)
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, db.txs, 3, "cada intento abre una transacción nueva")
	assert.True(t, db.txs[0].rolledBack)
	assert.True(t, db.txs[1].rolledBack)
	assert.True(t, db.txs[2].committed)
}

func TestRun_ExhaustionIsUnavailable(t *testing.T) {
	db := &fakeDB{beginErr: &pgconn.PgError{Code: "57P03"}}
	g := newTestGateway(db)

	err := g.Run(context.Background(), "allocate", func(context.Context, repository.Repos) error { return nil })
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestCheck_TracksHealthTransitions(t *testing.T) {
	db := &fakeDB{pingErr: errors.New("connection refused")}
	g := newTestGateway(db)
	require.True(t, g.Healthy())

	assert.Error(t, g.Check(context.Background()))
	assert.False(t, g.Healthy())

	db.pingErr = nil
	assert.NoError(t, g.Check(context.Background()))
	assert.True(t, g.Healthy())
}

func TestWriteErr_MapsConstraintViolations(t *testing.T) {
	assert.ErrorIs(t, writeErr("insert", &pgconn.PgError{Code: "23505"}), domain.ErrDuplicate)
	assert.ErrorIs(t, writeErr("insert", &pgconn.PgError{Code: "23503"}), domain.ErrNotFound)
	assert.ErrorIs(t, writeErr("update", &pgconn.PgError{Code: "23514"}), domain.ErrInvalidInput)
	assert.True(t, resilience.IsTransient(writeErr("update", &pgconn.PgError{Code: "40001"})))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
}
