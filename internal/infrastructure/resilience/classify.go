package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Códigos SQLSTATE de PostgreSQL relevantes para la clasificación.
const (
	PgErrSerializationFailure = "40001" // serialization_failure
	PgErrDeadlockDetected     = "40P01" // deadlock_detected
	PgErrQueryCanceled        = "57014" // query_canceled (statement_timeout)
	PgErrLockNotAvailable     = "55P03" // lock_not_available
	PgErrAdminShutdown        = "57P01" // admin_shutdown
	PgErrCrashShutdown        = "57P02" // crash_shutdown
	PgErrCannotConnectNow     = "57P03" // cannot_connect_now
	PgErrTooManyConnections   = "53300" // too_many_connections

	pgClassConnection           = "08" // connection_exception
	pgClassInsufficientResource = "53" // insufficient_resources
)

// transientError marca explícitamente un error como reintentable.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient envuelve err para que IsTransient lo considere reintentable.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// permanentError impide el reintento aunque el error subyacente parezca transitorio.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// MarkPermanent envuelve err para que nunca se reintente (p. ej. fallo ambiguo en COMMIT).
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient clasifica err: true para pérdida de conexión, fallos de serialización,
// deadlocks, timeouts de sentencia y agotamiento de recursos; false para todo lo demás
// (violaciones de constraint, errores de dominio, cancelación del caller).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var tr *transientError
	if errors.As(err, &tr) {
		return true
	}
	// La cancelación del caller no se reintenta: el contexto ya no sirve para otro intento.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return IsTransientSQLState(pgErr.Code)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

// IsTransientSQLState indica si un código SQLSTATE corresponde a una condición reintentable.
func IsTransientSQLState(code string) bool {
	switch code {
	case PgErrSerializationFailure, PgErrDeadlockDetected, PgErrQueryCanceled,
		PgErrLockNotAvailable, PgErrAdminShutdown, PgErrCrashShutdown, PgErrCannotConnectNow:
		return true
	}
	return strings.HasPrefix(code, pgClassConnection) || strings.HasPrefix(code, pgClassInsufficientResource)
}
