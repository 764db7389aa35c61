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

// DocumentService creates parts, purchases and quotations numbered from their series
type DocumentService struct {
	units     ports.WorkUnits
	sequences ports.SequenceAllocator
	documents ports.DocumentRepository
	retry     RetryPolicy
}

// NewDocumentService creates a document service
func NewDocumentService(units ports.WorkUnits, sequences ports.SequenceAllocator, documents ports.DocumentRepository, retry RetryPolicy) *DocumentService {
	return &DocumentService{
		units:     units,
		sequences: sequences,
		documents: documents,
		retry:     retry,
	}
}

// documentSeries parses name and rejects series that are not backed by a document table
func documentSeries(name string) (core.SeriesName, error) {
	series, err := core.ParseSeriesName(name)
	if err != nil {
		return "", err
	}
	if series == allocator.SeriesJob {
		return "", fmt.Errorf("%w: %s is not a document series", core.ErrUnknownSeries, series)
	}
	return series, nil
}

// Create allocates the next number of series and persists the document in one work unit
func (s *DocumentService) Create(ctx context.Context, tenantID int64, seriesName string, in models.CreateDocumentInput) (*models.Document, error) {
	tenant := core.TenantID(tenantID)
	if !tenant.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	series, err := documentSeries(seriesName)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "invalid document input", Cause: err}
	}

	logger := logging.WithComponent("documents").WithFields(logging.Fields{
		"tenant_id": tenantID,
		"series":    string(series),
	})

	var doc *models.Document
	err = s.retry.run(ctx, logger, func(attempt int) error {
		candidate := &models.Document{
			ID:        core.NewID().String(),
			TenantID:  tenantID,
			Series:    string(series),
			Title:     in.Title,
			CreatedAt: time.Now().UTC(),
		}
		err := s.units.WithTx(ctx, func(tx *store.Tx) error {
			number, err := s.sequences.Allocate(ctx, tx, tenant, series, 0)
			if err != nil {
				return err
			}
			candidate.Number = number.String()
			return s.documents.Insert(ctx, tx, candidate)
		})
		if err != nil {
			return err
		}
		doc = candidate
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to create %s document", series)
	}

	logger.WithField("number", doc.Number).Info("document created")
	return doc, nil
}

// Get returns a document by series and number
func (s *DocumentService) Get(ctx context.Context, tenantID int64, seriesName, number string) (*models.Document, error) {
	if !core.TenantID(tenantID).Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	series, err := documentSeries(seriesName)
	if err != nil {
		return nil, err
	}
	return s.documents.GetByNumber(ctx, tenantID, string(series), number)
}

// List returns a page of a tenant's documents of one series
func (s *DocumentService) List(ctx context.Context, tenantID int64, seriesName string, limit, offset int) ([]*models.Document, error) {
	if !core.TenantID(tenantID).Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTenant, tenantID)
	}
	series, err := documentSeries(seriesName)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.documents.ListByTenant(ctx, tenantID, string(series), limit, offset)
}
