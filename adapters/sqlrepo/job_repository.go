package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopseq/domain/core"
	"shopseq/internal/store"
	"shopseq/models"
	"shopseq/ports"

	"github.com/jmoiron/sqlx"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	store *store.Store
}

// NewJobRepository creates a new job repository
func NewJobRepository(s *store.Store) ports.JobRepository {
	return &jobRepository{store: s}
}

// Insert writes a job. Unique violations on job_number or token surface as
// core.ErrDuplicateIdentifier once the work unit classifies them.
func (r *jobRepository) Insert(ctx context.Context, exec sqlx.ExtContext, job *models.Job) error {
	_, err := sqlx.NamedExecContext(ctx, exec, `
		INSERT INTO jobs (id, tenant_id, job_number, token, customer_name, description, created_at)
		VALUES (:id, :tenant_id, :job_number, :token, :customer_name, :description, :created_at)
	`, job)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetByNumber retrieves a job by its tenant-scoped job number
func (r *jobRepository) GetByNumber(ctx context.Context, tenantID int64, number string) (*models.Job, error) {
	db := r.store.DB()
	var job models.Job
	err := db.GetContext(ctx, &job, db.Rebind(`
		SELECT id, tenant_id, job_number, token, customer_name, description, created_at
		FROM jobs
		WHERE tenant_id = ? AND job_number = ?
	`), tenantID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, number)
		}
		return nil, r.store.Classify("get job", err)
	}
	return &job, nil
}

// GetByToken retrieves a job by its opaque token
func (r *jobRepository) GetByToken(ctx context.Context, token string) (*models.Job, error) {
	db := r.store.DB()
	var job models.Job
	err := db.GetContext(ctx, &job, db.Rebind(`
		SELECT id, tenant_id, job_number, token, customer_name, description, created_at
		FROM jobs
		WHERE token = ?
	`), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token %s", core.ErrJobNotFound, token)
		}
		return nil, r.store.Classify("get job by token", err)
	}
	return &job, nil
}

// ListByTenant returns a page of a tenant's jobs, newest first
func (r *jobRepository) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*models.Job, error) {
	db := r.store.DB()
	jobs := make([]*models.Job, 0)
	err := db.SelectContext(ctx, &jobs, db.Rebind(`
		SELECT id, tenant_id, job_number, token, customer_name, description, created_at
		FROM jobs
		WHERE tenant_id = ?
		ORDER BY created_at DESC, job_number DESC
		LIMIT ? OFFSET ?
	`), tenantID, limit, offset)
	if err != nil {
		return nil, r.store.Classify("list jobs", err)
	}
	return jobs, nil
}

// Delete removes a job. The counter row and other jobs are untouched, so the
// number is never issued again.
func (r *jobRepository) Delete(ctx context.Context, tenantID int64, number string) error {
	db := r.store.DB()
	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM jobs WHERE tenant_id = ? AND job_number = ?`), tenantID, number)
	if err != nil {
		return r.store.Classify("delete job", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrJobNotFound, number)
	}
	return nil
}

// TokenExists reports whether any job currently holds token
func (r *jobRepository) TokenExists(ctx context.Context, token core.Token) (bool, error) {
	db := r.store.DB()
	var exists bool
	err := db.QueryRowxContext(ctx, db.Rebind(`SELECT EXISTS (SELECT 1 FROM jobs WHERE token = ?)`), string(token)).Scan(&exists)
	if err != nil {
		return false, r.store.Classify("token exists", err)
	}
	return exists, nil
}
