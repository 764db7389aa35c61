package ports

import (
	"context"

	"shopseq/models"

	"github.com/jmoiron/sqlx"
)

// JobRepository defines the interface for job data operations
type JobRepository interface {
	// Insert writes a job using the given executor (a work unit or the pool)
	Insert(ctx context.Context, exec sqlx.ExtContext, job *models.Job) error

	// GetByNumber retrieves a job by its tenant-scoped job number
	GetByNumber(ctx context.Context, tenantID int64, number string) (*models.Job, error)

	// GetByToken retrieves a job by its opaque token
	GetByToken(ctx context.Context, token string) (*models.Job, error)

	// ListByTenant returns a page of a tenant's jobs, newest first
	ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*models.Job, error)

	// Delete removes a job
	Delete(ctx context.Context, tenantID int64, number string) error

	TokenChecker
}
