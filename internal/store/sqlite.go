package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopseq/domain/core"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLite opens every work unit with BEGIN IMMEDIATE, which takes the database
// write lock up front. That lock is wider than one series but it is held across
// scan and insert, and busy_timeout bounds the wait.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) DSN(url string, lockTimeout time.Duration) string {
	dsn := url
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join([]string{
		"_txlock=immediate",
		fmt.Sprintf("_pragma=busy_timeout(%d)", lockTimeout.Milliseconds()),
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
	}, "&")
}

func (SQLite) PrepareTx(context.Context, *sqlx.Tx, time.Duration) error { return nil }

// LockSeries is a no-op: the immediate transaction already holds the write lock
func (SQLite) LockSeries(context.Context, *sqlx.Tx, core.LockKey) error { return nil }

func (SQLite) Classify(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	code := sqliteErr.Code()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return core.ErrDuplicateIdentifier
	case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed"):
		return core.ErrDuplicateIdentifier
	case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
		return core.ErrAllocationTimeout
	default:
		return core.ErrStore
	}
}
