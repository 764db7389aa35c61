package app

import (
	"context"
	"fmt"
	"time"

	"shopseq/domain/core"
	"shopseq/internal/allocator"
	apperrors "shopseq/internal/errors"
	"shopseq/internal/logging"
	"shopseq/internal/store"
	"shopseq/models"
	"shopseq/ports"
)

// JobTokenPrefix namespaces the opaque job tokens
const JobTokenPrefix = "JOB_"

// Page size limits for list operations
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// JobService creates and reads workshop jobs. Each job gets a sequential job
// number (C<tenant>JOB0001) and an opaque token (JOB_1F3A9C02).
type JobService struct {
	units      ports.WorkUnits
	sequences  ports.SequenceAllocator
	tokens     ports.TokenAllocator
	jobs       ports.JobRepository
	tokenBytes int
	retry      RetryPolicy
}

// NewJobService creates a job service
func NewJobService(
	units ports.WorkUnits,
	sequences ports.SequenceAllocator,
	tokens ports.TokenAllocator,
	jobs ports.JobRepository,
	tokenBytes int,
	retry RetryPolicy,
) *JobService {
	return &JobService{
		units:      units,
		sequences:  sequences,
		tokens:     tokens,
		jobs:       jobs,
		tokenBytes: tokenBytes,
		retry:      retry,
	}
}

// CreateJob allocates a job number and token and persists the job in one work
// unit. Lock timeouts and unique violations re-run the whole request.
func (s *JobService) CreateJob(ctx context.Context, tenantID int64, in models.CreateJobInput) (*models.Job, error) {
	tenant := core.TenantID(tenantID)
	if !tenant.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	if err := in.Validate(); err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "invalid job input", Cause: err}
	}

	logger := logging.WithComponent("jobs").WithField("tenant_id", tenantID)

	var job *models.Job
	err := s.retry.run(ctx, logger, func(attempt int) error {
		token, err := s.tokens.AllocateToken(ctx, JobTokenPrefix, s.tokenBytes)
		if err != nil {
			return err
		}

		candidate := &models.Job{
			ID:           core.NewID().String(),
			TenantID:     tenantID,
			Token:        token.String(),
			CustomerName: in.CustomerName,
			Description:  in.Description,
			CreatedAt:    time.Now().UTC(),
		}

		err = s.units.WithTx(ctx, func(tx *store.Tx) error {
			number, err := s.sequences.Allocate(ctx, tx, tenant, allocator.SeriesJob, 0)
			if err != nil {
				return err
			}
			candidate.JobNumber = number.String()
			return s.jobs.Insert(ctx, tx, candidate)
		})
		if err != nil {
			return err
		}
		job = candidate
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create job")
	}

	logger.WithFields(logging.Fields{
		"job_number": job.JobNumber,
		"token":      job.Token,
	}).Info("job created")
	return job, nil
}

// GetJob returns a tenant's job by number
func (s *JobService) GetJob(ctx context.Context, tenantID int64, number string) (*models.Job, error) {
	if !core.TenantID(tenantID).Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	return s.jobs.GetByNumber(ctx, tenantID, number)
}

// GetJobByToken resolves a job from its opaque token
func (s *JobService) GetJobByToken(ctx context.Context, token string) (*models.Job, error) {
	return s.jobs.GetByToken(ctx, token)
}

// ListJobs returns a page of a tenant's jobs
func (s *JobService) ListJobs(ctx context.Context, tenantID int64, limit, offset int) ([]*models.Job, error) {
	if !core.TenantID(tenantID).Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	limit, offset = clampPage(limit, offset)
	return s.jobs.ListByTenant(ctx, tenantID, limit, offset)
}

// DeleteJob removes a job. Under the counter strategy its number is never
// issued again. Under the scan strategy numbers are derived from the records
// that exist, so deleting the highest job of a series lets the next
// allocation reuse its number.
func (s *JobService) DeleteJob(ctx context.Context, tenantID int64, number string) error {
	if !core.TenantID(tenantID).Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	if err := s.jobs.Delete(ctx, tenantID, number); err != nil {
		return err
	}
	logging.WithComponent("jobs").WithFields(logging.Fields{
		"tenant_id":  tenantID,
		"job_number": number,
	}).Info("job deleted")
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
