// Package allocator issues per-tenant sequential identifiers and opaque tokens.
package allocator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopseq/domain/core"
	"shopseq/internal/logging"
	"shopseq/internal/observability"
	"shopseq/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Sequencer is the derived sequential allocator. It keeps no state of its own:
// every number comes from the store inside the caller's work unit.
type Sequencer struct {
	store    *store.Store
	registry *Registry
}

// NewSequencer creates a sequencer over the given store and series registry
func NewSequencer(s *store.Store, registry *Registry) *Sequencer {
	return &Sequencer{store: s, registry: registry}
}

// Allocate returns the next identifier of (tenant, series) inside tx. The
// caller must insert the owning record in the same work unit; the number is
// only consumed if that unit commits. width <= 0 selects the series width.
func (s *Sequencer) Allocate(ctx context.Context, tx *store.Tx, tenant core.TenantID, series core.SeriesName, width int) (core.Identifier, error) {
	if !tenant.Valid() {
		return "", fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenant)
	}
	def, err := s.registry.Lookup(series)
	if err != nil {
		return "", err
	}
	if width < 0 {
		return "", fmt.Errorf("%w: %d", core.ErrInvalidWidth, width)
	}
	if width == 0 {
		width = def.Width
	}

	ctx, span := observability.Tracer().Start(ctx, "allocator.sequence.allocate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("tenant_id", int64(tenant)),
		attribute.String("series", string(series)),
		attribute.String("strategy", string(def.Strategy)),
	)

	prefix := core.SeriesPrefix(tenant, def.Name)

	var next int64
	switch def.Strategy {
	case StrategyScan:
		next, err = s.nextByScan(ctx, tx, tenant, def, prefix)
	default:
		next, err = s.nextByCounter(ctx, tx, tenant, def, prefix, width)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, core.ErrAllocationTimeout) {
			logging.WithComponent("allocator").WithFields(logging.Fields{
				"tenant_id": int64(tenant),
				"series":    string(series),
			}).Warn("series lock wait timed out")
		}
		return "", err
	}

	id := core.FormatIdentifier(prefix, next, width)
	span.SetAttributes(attribute.String("identifier", id.String()))
	return id, nil
}

// AllocateWith runs a complete work unit: allocate, persist, commit. persist
// receives the identifier and must write the owning record through tx. Any
// error rolls the unit back and the number stays unused.
func (s *Sequencer) AllocateWith(
	ctx context.Context,
	tenant core.TenantID,
	series core.SeriesName,
	width int,
	persist func(ctx context.Context, tx *store.Tx, id core.Identifier) error,
) (core.Identifier, error) {
	var id core.Identifier
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		id, err = s.Allocate(ctx, tx, tenant, series, width)
		if err != nil {
			return err
		}
		return persist(ctx, tx, id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// nextByScan holds the series lock and derives max(suffix)+1 from existing
// records. The counter row is advanced too so a later switch to the counter
// strategy continues after the numbers issued here.
func (s *Sequencer) nextByScan(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, prefix string) (int64, error) {
	if err := tx.LockSeries(ctx, tenant, def.Name); err != nil {
		return 0, err
	}
	current, err := s.scanMax(ctx, tx, tenant, def, prefix)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := s.raiseCounter(ctx, tx, tenant, def, next); err != nil {
		return 0, err
	}
	return next, nil
}

// nextByCounter increments the counter row. The row lock serializes allocators of
// one (tenant, series) until the work unit ends. A missing row is seeded from the
// records already present. When the incremented number is already held by a
// record, the row fell behind and is resynced past the highest existing suffix.
func (s *Sequencer) nextByCounter(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, prefix string, width int) (int64, error) {
	now := time.Now().UTC()

	var next int64
	err := tx.QueryRowxContext(ctx, tx.Rebind(`
		UPDATE id_series_counters
		SET last_issued = last_issued + 1, updated_at = ?
		WHERE tenant_id = ? AND series = ?
		RETURNING last_issued
	`), now, int64(tenant), string(def.Name)).Scan(&next)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return s.seedCounter(ctx, tx, tenant, def, prefix)
	default:
		return 0, tx.Classify("increment counter", err)
	}

	taken, err := s.identifierTaken(ctx, tx, tenant, def, core.FormatIdentifier(prefix, next, width))
	if err != nil {
		return 0, err
	}
	if !taken {
		return next, nil
	}

	current, err := s.scanMax(ctx, tx, tenant, def, prefix)
	if err != nil {
		return 0, err
	}
	logging.WithComponent("allocator").WithFields(logging.Fields{
		"tenant_id":   int64(tenant),
		"series":      string(def.Name),
		"last_issued": next,
		"highest":     current,
	}).Warn("counter behind existing records, resyncing")

	if current >= next {
		next = current + 1
	}
	if err := s.raiseCounter(ctx, tx, tenant, def, next); err != nil {
		return 0, err
	}
	return next, nil
}

// seedCounter creates the counter row from the records already present
func (s *Sequencer) seedCounter(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, prefix string) (int64, error) {
	seed, err := s.scanMax(ctx, tx, tenant, def, prefix)
	if err != nil {
		return 0, err
	}

	var next int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO id_series_counters (tenant_id, series, last_issued, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, series)
		DO UPDATE SET last_issued = id_series_counters.last_issued + 1, updated_at = excluded.updated_at
		RETURNING last_issued
	`), int64(tenant), string(def.Name), seed+1, time.Now().UTC()).Scan(&next)
	if err != nil {
		return 0, tx.Classify("seed counter", err)
	}
	return next, nil
}

// raiseCounter moves last_issued up to issued. It never lowers the row.
func (s *Sequencer) raiseCounter(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, issued int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO id_series_counters (tenant_id, series, last_issued, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, series)
		DO UPDATE SET
			last_issued = CASE
				WHEN id_series_counters.last_issued < excluded.last_issued THEN excluded.last_issued
				ELSE id_series_counters.last_issued
			END,
			updated_at = excluded.updated_at
	`), int64(tenant), string(def.Name), issued, time.Now().UTC())
	if err != nil {
		return tx.Classify("raise counter", err)
	}
	return nil
}

// identifierTaken reports whether a record of the series already holds id
func (s *Sequencer) identifierTaken(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, id core.Identifier) (bool, error) {
	query := tx.Rebind(fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM %[2]s WHERE tenant_id = ? AND %[1]s = ?)",
		def.Column, def.Table,
	))

	var taken bool
	if err := tx.QueryRowxContext(ctx, query, int64(tenant), id.String()).Scan(&taken); err != nil {
		return false, tx.Classify("check identifier", err)
	}
	return taken, nil
}

// scanMax returns the highest numeric suffix among the tenant's identifiers that
// start with prefix. Identifiers of any other shape are skipped with a warning.
func (s *Sequencer) scanMax(ctx context.Context, tx *store.Tx, tenant core.TenantID, def Series, prefix string) (int64, error) {
	query := tx.Rebind(fmt.Sprintf(
		"SELECT %[1]s FROM %[2]s WHERE tenant_id = ? AND %[1]s LIKE ?",
		def.Column, def.Table,
	))

	rows, err := tx.QueryxContext(ctx, query, int64(tenant), prefix+"%")
	if err != nil {
		return 0, tx.Classify("scan series", err)
	}
	defer rows.Close()

	var current int64
	for rows.Next() {
		var existing string
		if err := rows.Scan(&existing); err != nil {
			return 0, tx.Classify("scan series", err)
		}
		seq, ok := core.ParseSuffix(prefix, existing)
		if !ok {
			logging.WithComponent("allocator").WithFields(logging.Fields{
				"tenant_id":  int64(tenant),
				"series":     string(def.Name),
				"identifier": existing,
			}).Warn("ignoring malformed identifier")
			continue
		}
		if seq > current {
			current = seq
		}
	}
	if err := rows.Err(); err != nil {
		return 0, tx.Classify("scan series", err)
	}
	return current, nil
}
