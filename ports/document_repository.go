package ports

import (
	"context"

	"shopseq/models"

	"github.com/jmoiron/sqlx"
)

// DocumentRepository stores records of the non-job series (parts, purchases, quotations)
type DocumentRepository interface {
	// Insert writes doc into the table backing its series
	Insert(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error

	// GetByNumber retrieves a document by series and number
	GetByNumber(ctx context.Context, tenantID int64, series, number string) (*models.Document, error)

	// ListByTenant returns a page of a tenant's documents of one series, newest first
	ListByTenant(ctx context.Context, tenantID int64, series string, limit, offset int) ([]*models.Document, error)
}
