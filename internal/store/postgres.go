package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopseq/domain/core"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres serializes allocators with transaction-scoped advisory locks keyed by
// (series, tenant), so unrelated tenants never wait on each other.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "postgres" }

func (Postgres) DSN(url string, _ time.Duration) string { return url }

// PrepareTx bounds lock waits for the work unit via lock_timeout
func (Postgres) PrepareTx(ctx context.Context, tx *sqlx.Tx, lockTimeout time.Duration) error {
	if lockTimeout <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds()))
	return err
}

// LockSeries takes pg_advisory_xact_lock; it is released on commit or rollback
func (Postgres) LockSeries(ctx context.Context, tx *sqlx.Tx, key core.LockKey) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2)", key.Series, key.Tenant)
	return err
}

// Postgres SQLSTATE codes the allocators react to
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func (Postgres) Classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pgUniqueViolation:
		return core.ErrDuplicateIdentifier
	case pgLockNotAvailable, pgQueryCanceled, pgSerializationFailure, pgDeadlockDetected:
		return core.ErrAllocationTimeout
	default:
		return core.ErrStore
	}
}
