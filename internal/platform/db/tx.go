package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/apperror"
)

type contextKey string

const txKey contextKey = "db_tx"

// TxFromContext returns the transaction carried by ctx, or nil when the call
// is not running inside RunInTx. Repositories check this before falling back
// to the pool so that every statement issued during a compound mutation joins
// the same transaction.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// WithTx returns a child context carrying tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// RunInTx executes fn inside a single database transaction. If ctx already
// carries a transaction the existing one is reused, so services can compose
// (claim approval calls the billing service inside its own RunInTx).
// Commit and rollback errors, serialization failures, and lock timeouts are
// translated into the application error taxonomy.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return Translate(err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return Translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Translate(err)
	}
	return nil
}

// TxRunner is the transaction scope services depend on. The pool-backed
// implementation lives here; tests substitute a pass-through.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolRunner struct{ pool *pgxpool.Pool }

func NewTxRunner(pool *pgxpool.Pool) TxRunner { return poolRunner{pool: pool} }

func (r poolRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, r.pool, fn)
}

// Postgres error codes that matter to the taxonomy.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgLockNotAvailable    = "55P03"
)

// Translate maps low-level pgx errors onto the application error taxonomy.
// Errors that already carry a Kind pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.Wrap(apperror.KindNotFound, err, "record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return apperror.Wrap(apperror.KindReferentialConflict, err, "referenced record does not exist or is still referenced")
		case pgUniqueViolation:
			return apperror.Wrap(apperror.KindConcurrencyConflict, err, "conflicting concurrent write")
		case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable:
			return apperror.Wrap(apperror.KindConcurrencyConflict, err, "transaction conflict, retry")
		}
	}

	return apperror.Internal(err)
}
