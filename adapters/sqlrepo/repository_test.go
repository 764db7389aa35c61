package sqlrepo_test

import (
	"context"
	"testing"
	"time"

	"shopseq/adapters/sqlrepo"
	"shopseq/domain/core"
	"shopseq/internal/allocator"
	"shopseq/internal/store"
	"shopseq/internal/testkit"
	"shopseq/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(tenant int64, number, token string, createdAt time.Time) *models.Job {
	return &models.Job{
		ID:           uuid.NewString(),
		TenantID:     tenant,
		JobNumber:    number,
		Token:        token,
		CustomerName: "Ada",
		Description:  "Brake service",
		CreatedAt:    createdAt,
	}
}

func TestJobRepository_InsertAndGet(t *testing.T) {
	s := testkit.NewSQLiteStore(t, time.Second)
	repo := sqlrepo.NewJobRepository(s)
	ctx := context.Background()

	job := newJob(7, "C7JOB0001", "JOB_0000AAAA", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, job)
	}))

	got, err := repo.GetByNumber(ctx, 7, "C7JOB0001")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Token, got.Token)
	assert.Equal(t, "Ada", got.CustomerName)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))

	byToken, err := repo.GetByToken(ctx, "JOB_0000AAAA")
	require.NoError(t, err)
	assert.Equal(t, job.ID, byToken.ID)

	_, err = repo.GetByNumber(ctx, 8, "C7JOB0001")
	assert.ErrorIs(t, err, core.ErrJobNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestJobRepository_DuplicateNumber(t *testing.T) {
	s := testkit.NewSQLiteStore(t, time.Second)
	repo := sqlrepo.NewJobRepository(s)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, newJob(7, "C7JOB0001", "JOB_00000001", now))
	}))

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, newJob(7, "C7JOB0001", "JOB_00000002", now))
	})
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)

	err = s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, newJob(8, "C8JOB0001", "JOB_00000001", now))
	})
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)
}

func TestJobRepository_TokenExists(t *testing.T) {
	s := testkit.NewSQLiteStore(t, time.Second)
	repo := sqlrepo.NewJobRepository(s)
	ctx := context.Background()

	exists, err := repo.TokenExists(ctx, "JOB_DEADBEEF")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, newJob(7, "C7JOB0001", "JOB_DEADBEEF", time.Now().UTC()))
	}))

	exists, err = repo.TokenExists(ctx, "JOB_DEADBEEF")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestJobRepository_ListAndDelete(t *testing.T) {
	s := testkit.NewSQLiteStore(t, time.Second)
	repo := sqlrepo.NewJobRepository(s)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		for i, number := range []string{"C7JOB0001", "C7JOB0002", "C7JOB0003"} {
			job := newJob(7, number, "JOB_"+uuid.NewString()[:8], base.Add(time.Duration(i)*time.Minute))
			if err := repo.Insert(ctx, tx, job); err != nil {
				return err
			}
		}
		return repo.Insert(ctx, tx, newJob(8, "C8JOB0001", "JOB_"+uuid.NewString()[:8], base))
	}))

	jobs, err := repo.ListByTenant(ctx, 7, 2, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "C7JOB0003", jobs[0].JobNumber)
	assert.Equal(t, "C7JOB0002", jobs[1].JobNumber)

	require.NoError(t, repo.Delete(ctx, 7, "C7JOB0003"))
	assert.ErrorIs(t, repo.Delete(ctx, 7, "C7JOB0003"), core.ErrJobNotFound)

	jobs, err = repo.ListByTenant(ctx, 7, 10, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestDocumentRepository(t *testing.T) {
	s := testkit.NewSQLiteStore(t, time.Second)
	registry := allocator.NewRegistry(allocator.StrategyCounter, 4)
	repo := sqlrepo.NewDocumentRepository(s, registry)
	ctx := context.Background()
	now := time.Now().UTC()

	doc := &models.Document{
		ID:        uuid.NewString(),
		TenantID:  7,
		Series:    "QUO",
		Number:    "C7QUO0001",
		Title:     "Annual service",
		CreatedAt: now,
	}
	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return repo.Insert(ctx, tx, doc)
	}))

	got, err := repo.GetByNumber(ctx, 7, "quo", "C7QUO0001")
	require.NoError(t, err)
	assert.Equal(t, "QUO", got.Series)
	assert.Equal(t, "Annual service", got.Title)

	docs, err := repo.ListByTenant(ctx, 7, "QUO", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "C7QUO0001", docs[0].Number)

	_, err = repo.GetByNumber(ctx, 7, "PART", "C7QUO0001")
	assert.True(t, core.IsNotFoundError(err))

	_, err = repo.ListByTenant(ctx, 7, "INV", 10, 0)
	assert.ErrorIs(t, err, core.ErrUnknownSeries)

	_, err = repo.ListByTenant(ctx, 7, "Q1", 10, 0)
	assert.ErrorIs(t, err, core.ErrInvalidSeries)
}
