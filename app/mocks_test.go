package app

import (
	"context"

	"shopseq/domain/core"
	"shopseq/internal/store"
	"shopseq/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

// fakeUnits runs fn without a database; a non-nil error means the unit rolled back
type fakeUnits struct {
	calls int
}

func (u *fakeUnits) WithTx(_ context.Context, fn func(tx *store.Tx) error) error {
	u.calls++
	return fn(nil)
}

type MockSequenceAllocator struct {
	mock.Mock
}

func (m *MockSequenceAllocator) Allocate(ctx context.Context, tx *store.Tx, tenant core.TenantID, series core.SeriesName, width int) (core.Identifier, error) {
	args := m.Called(ctx, tx, tenant, series, width)
	return args.Get(0).(core.Identifier), args.Error(1)
}

type MockTokenAllocator struct {
	mock.Mock
}

func (m *MockTokenAllocator) AllocateToken(ctx context.Context, prefix string, n int) (core.Token, error) {
	args := m.Called(ctx, prefix, n)
	return args.Get(0).(core.Token), args.Error(1)
}

type MockJobRepository struct {
	mock.Mock
	inserted []*models.Job
}

func (m *MockJobRepository) Insert(ctx context.Context, exec sqlx.ExtContext, job *models.Job) error {
	args := m.Called(ctx, exec, job)
	if args.Error(0) == nil {
		m.inserted = append(m.inserted, job)
	}
	return args.Error(0)
}

func (m *MockJobRepository) GetByNumber(ctx context.Context, tenantID int64, number string) (*models.Job, error) {
	args := m.Called(ctx, tenantID, number)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *MockJobRepository) GetByToken(ctx context.Context, token string) (*models.Job, error) {
	args := m.Called(ctx, token)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *MockJobRepository) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*models.Job, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockJobRepository) Delete(ctx context.Context, tenantID int64, number string) error {
	args := m.Called(ctx, tenantID, number)
	return args.Error(0)
}

func (m *MockJobRepository) TokenExists(ctx context.Context, token core.Token) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Insert(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error {
	args := m.Called(ctx, exec, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByNumber(ctx context.Context, tenantID int64, series, number string) (*models.Document, error) {
	args := m.Called(ctx, tenantID, series, number)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentRepository) ListByTenant(ctx context.Context, tenantID int64, series string, limit, offset int) ([]*models.Document, error) {
	args := m.Called(ctx, tenantID, series, limit, offset)
	return args.Get(0).([]*models.Document), args.Error(1)
}
