package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"shopseq/domain/core"
)

// Error is a classified store failure. Kind is one of core.ErrStore,
// core.ErrAllocationTimeout or core.ErrDuplicateIdentifier; Err is the driver cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify converts err into a *Error when it originates from the database.
// Errors that are already classified, and application errors, pass through unchanged.
func (s *Store) Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if kind := s.dialect.Classify(err); kind != nil {
		return &Error{Op: op, Kind: kind, Err: err}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Kind: core.ErrAllocationTimeout, Err: err}
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return &Error{Op: op, Kind: core.ErrStore, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Op: op, Kind: core.ErrStore, Err: err}
	}
	return err
}
