package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopseq/domain/core"
	"shopseq/internal/allocator"
	"shopseq/internal/store"
	"shopseq/models"
	"shopseq/ports"

	"github.com/jmoiron/sqlx"
)

// documentRepository stores parts, purchases and quotations. The table and code
// column come from the series registry.
type documentRepository struct {
	store    *store.Store
	registry *allocator.Registry
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(s *store.Store, registry *allocator.Registry) ports.DocumentRepository {
	return &documentRepository{store: s, registry: registry}
}

func (r *documentRepository) series(name string) (allocator.Series, error) {
	seriesName, err := core.ParseSeriesName(name)
	if err != nil {
		return allocator.Series{}, err
	}
	return r.registry.Lookup(seriesName)
}

// Insert writes doc into the table backing its series
func (r *documentRepository) Insert(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error {
	def, err := r.series(doc.Series)
	if err != nil {
		return err
	}

	query := exec.Rebind(fmt.Sprintf(
		"INSERT INTO %s (id, tenant_id, %s, title, created_at) VALUES (?, ?, ?, ?, ?)",
		def.Table, def.Column,
	))
	if _, err := exec.ExecContext(ctx, query, doc.ID, doc.TenantID, doc.Number, doc.Title, doc.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert %s: %w", def.Table, err)
	}
	return nil
}

// GetByNumber retrieves a document by series and number
func (r *documentRepository) GetByNumber(ctx context.Context, tenantID int64, series, number string) (*models.Document, error) {
	def, err := r.series(series)
	if err != nil {
		return nil, err
	}

	db := r.store.DB()
	var doc models.Document
	err = db.GetContext(ctx, &doc, db.Rebind(fmt.Sprintf(
		"SELECT id, tenant_id, %[1]s AS number, title, created_at FROM %[2]s WHERE tenant_id = ? AND %[1]s = ?",
		def.Column, def.Table,
	)), tenantID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError(def.Table, number)
		}
		return nil, r.store.Classify("get document", err)
	}
	doc.Series = string(def.Name)
	return &doc, nil
}

// ListByTenant returns a page of a tenant's documents of one series, newest first
func (r *documentRepository) ListByTenant(ctx context.Context, tenantID int64, series string, limit, offset int) ([]*models.Document, error) {
	def, err := r.series(series)
	if err != nil {
		return nil, err
	}

	db := r.store.DB()
	docs := make([]*models.Document, 0)
	err = db.SelectContext(ctx, &docs, db.Rebind(fmt.Sprintf(
		"SELECT id, tenant_id, %[1]s AS number, title, created_at FROM %[2]s WHERE tenant_id = ? ORDER BY created_at DESC, %[1]s DESC LIMIT ? OFFSET ?",
		def.Column, def.Table,
	)), tenantID, limit, offset)
	if err != nil {
		return nil, r.store.Classify("list documents", err)
	}
	for _, doc := range docs {
		doc.Series = string(def.Name)
	}
	return docs, nil
}
