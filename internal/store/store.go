// Package store provides the transactional work units the allocators run in.
package store

import (
	"context"
	"fmt"
	"time"

	"shopseq/domain/core"
	"shopseq/internal/logging"

	"github.com/jmoiron/sqlx"
)

// Options configures Open
type Options struct {
	Driver       string
	URL          string
	MaxOpenConns int
	// LockTimeout bounds every lock wait inside a work unit.
	LockTimeout time.Duration
}

// Store wraps a sqlx connection pool and the dialect-specific locking rules.
type Store struct {
	db          *sqlx.DB
	dialect     Dialect
	lockTimeout time.Duration
}

// Tx is a single work unit. Locks taken through it are released on commit or rollback.
type Tx struct {
	*sqlx.Tx
	store *Store
}

// Open connects to the configured database and verifies the connection
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}

	db, err := sqlx.Open(dialect.DriverName(), dialect.DSN(opts.URL, opts.LockTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{Op: "ping", Kind: core.ErrStore, Err: err}
	}

	logging.WithComponent("store").WithFields(logging.Fields{
		"driver":       dialect.Name(),
		"lock_timeout": opts.LockTimeout.String(),
	}).Info("database opened")

	return New(db, dialect, opts.LockTimeout), nil
}

// New wraps an existing connection pool
func New(db *sqlx.DB, dialect Dialect, lockTimeout time.Duration) *Store {
	return &Store{db: db, dialect: dialect, lockTimeout: lockTimeout}
}

// DB returns the underlying pool for reads outside a work unit
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one work unit. The unit commits when fn returns nil and
// rolls back otherwise; driver errors from fn or from commit are classified.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.Classify("begin", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := s.dialect.PrepareTx(ctx, sqlTx, s.lockTimeout); err != nil {
		return s.Classify("prepare", err)
	}

	if err := fn(&Tx{Tx: sqlTx, store: s}); err != nil {
		return s.Classify("tx", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return s.Classify("commit", err)
	}
	return nil
}

// LockSeries takes the exclusive per-(tenant, series) lock for the rest of the work unit
func (tx *Tx) LockSeries(ctx context.Context, tenant core.TenantID, series core.SeriesName) error {
	if err := tx.store.dialect.LockSeries(ctx, tx.Tx, core.NewLockKey(tenant, series)); err != nil {
		return tx.store.Classify("lock series", err)
	}
	return nil
}

// Classify converts a driver error into a *Error carrying a domain kind
func (tx *Tx) Classify(op string, err error) error {
	return tx.store.Classify(op, err)
}
