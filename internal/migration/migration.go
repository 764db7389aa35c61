package migration

import (
	"context"
	"fmt"

	"shopseq/internal/errors"
	"shopseq/internal/logging"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the schema idempotently. The DDL is kept to the
// subset shared by PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// documentTables are the sequential-code record tables other than jobs
var documentTables = []struct {
	table  string
	column string
}{
	{"inventory_parts", "part_number"},
	{"purchases", "purchase_number"},
	{"quotations", "quotation_number"},
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createJobsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create jobs table")
	}

	for _, doc := range documentTables {
		if err := r.createDocumentTable(ctx, db, doc.table, doc.column); err != nil {
			return errors.Wrapf(err, "failed to create %s table", doc.table)
		}
	}

	if err := r.createSeriesCountersTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create id_series_counters table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	logging.WithComponent("migration").WithField("version", r.version).Info("schema up to date")
	return nil
}

func (r *MigrationRunner) createJobsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			job_number VARCHAR(64) NOT NULL,
			token VARCHAR(64) NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			CONSTRAINT jobs_tenant_number_key UNIQUE (tenant_id, job_number),
			CONSTRAINT jobs_token_key UNIQUE (token)
		)
	`)
	return err
}

func (r *MigrationRunner) createDocumentTable(ctx context.Context, db *sqlx.DB, table, column string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			%[2]s VARCHAR(64) NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			CONSTRAINT %[1]s_tenant_number_key UNIQUE (tenant_id, %[2]s)
		)
	`, table, column))
	return err
}

// createSeriesCountersTable holds one row per (tenant, series) for the counter strategy
func (r *MigrationRunner) createSeriesCountersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS id_series_counters (
			tenant_id BIGINT NOT NULL,
			series VARCHAR(32) NOT NULL,
			last_issued BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (tenant_id, series)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_tenant_created ON jobs(tenant_id, created_at)",
	}
	for _, doc := range documentTables {
		indexes = append(indexes, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%[1]s_tenant_created ON %[1]s(tenant_id, created_at)", doc.table))
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			logging.WithComponent("migration").WithError(err).Warn("failed to create index")
		}
	}

	return nil
}
