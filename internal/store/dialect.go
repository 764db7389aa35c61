package store

import (
	"context"
	"fmt"
	"time"

	"shopseq/domain/core"

	"github.com/jmoiron/sqlx"
)

// Dialect captures the database-specific parts of locking and error handling
type Dialect interface {
	Name() string
	DriverName() string
	// DSN adapts a configured URL, applying lockTimeout where the driver takes it there.
	DSN(url string, lockTimeout time.Duration) string
	// PrepareTx runs at the start of every work unit.
	PrepareTx(ctx context.Context, tx *sqlx.Tx, lockTimeout time.Duration) error
	// LockSeries blocks until the work unit holds the exclusive lock for key.
	LockSeries(ctx context.Context, tx *sqlx.Tx, key core.LockKey) error
	// Classify returns the domain kind of a driver error, or nil if it is not a driver error.
	Classify(err error) error
}

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres", "":
		return Postgres{}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", name)
	}
}
