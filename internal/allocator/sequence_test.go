package allocator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopseq/domain/core"
	"shopseq/internal/allocator"
	"shopseq/internal/store"
	"shopseq/internal/testkit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var strategies = []allocator.Strategy{allocator.StrategyCounter, allocator.StrategyScan}

func newSequencer(t *testing.T, strategy allocator.Strategy) (*allocator.Sequencer, *store.Store) {
	t.Helper()
	s := testkit.NewSQLiteStore(t, 10*time.Second)
	return allocator.NewSequencer(s, allocator.NewRegistry(strategy, core.DefaultWidth)), s
}

// insertJob persists a job with the given number through tx
func insertJob(ctx context.Context, tx *store.Tx, tenant core.TenantID, number string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO jobs (id, tenant_id, job_number, token, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), uuid.NewString(), int64(tenant), number, "JOB_"+uuid.NewString(), time.Now().UTC())
	return err
}

// seedJobs writes existing job numbers outside any allocator
func seedJobs(t *testing.T, s *store.Store, tenant core.TenantID, numbers ...string) {
	t.Helper()
	require.NoError(t, s.WithTx(context.Background(), func(tx *store.Tx) error {
		for _, n := range numbers {
			if err := insertJob(context.Background(), tx, tenant, n); err != nil {
				return err
			}
		}
		return nil
	}))
}

func allocateJob(ctx context.Context, seq *allocator.Sequencer, tenant core.TenantID) (core.Identifier, error) {
	return seq.AllocateWith(ctx, tenant, allocator.SeriesJob, 0, func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
		return insertJob(ctx, tx, tenant, id.String())
	})
}

func TestAllocate_EmptySeries(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, _ := newSequencer(t, strategy)

			id, err := allocateJob(context.Background(), seq, 7)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C7JOB0001"), id)
		})
	}
}

func TestAllocate_ContinuesFromHighestSuffix(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			seedJobs(t, s, 7, "C7JOB0001", "C7JOB0002", "C7JOB0005")

			id, err := allocateJob(context.Background(), seq, 7)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C7JOB0006"), id)
		})
	}
}

func TestAllocate_IgnoresMalformedIdentifiers(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			seedJobs(t, s, 7, "C7JOB0003", "C7JOBX12", "C7JOB00A9", "c7job0050")

			id, err := allocateJob(context.Background(), seq, 7)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C7JOB0004"), id)
		})
	}
}

func TestAllocate_SequentialCallsAreContiguous(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, _ := newSequencer(t, strategy)

			for i := 1; i <= 25; i++ {
				id, err := allocateJob(context.Background(), seq, 7)
				require.NoError(t, err)
				assert.Equal(t, core.FormatIdentifier("C7JOB", int64(i), 4), id)
			}
		})
	}
}

func TestAllocate_RollbackDoesNotConsumeNumber(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			seedJobs(t, s, 7, "C7JOB0001", "C7JOB0002", "C7JOB0003")
			ctx := context.Background()

			errAbort := errors.New("abort")
			var rolledBack core.Identifier
			_, err := seq.AllocateWith(ctx, 7, allocator.SeriesJob, 0, func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
				rolledBack = id
				if err := insertJob(ctx, tx, 7, id.String()); err != nil {
					return err
				}
				return errAbort
			})
			require.ErrorIs(t, err, errAbort)
			assert.Equal(t, core.Identifier("C7JOB0004"), rolledBack)

			id, err := allocateJob(ctx, seq, 7)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C7JOB0004"), id)
		})
	}
}

func TestAllocate_ConcurrentCallsAreUnique(t *testing.T) {
	const workers = 100

	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			ctx := context.Background()

			ids := make([]core.Identifier, workers)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < workers; i++ {
				g.Go(func() error {
					id, err := allocateJob(gctx, seq, 7)
					ids[i] = id
					return err
				})
			}
			require.NoError(t, g.Wait())

			seen := make(map[core.Identifier]bool, workers)
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate identifier %s", id)
				seen[id] = true
			}
			for n := 1; n <= workers; n++ {
				assert.True(t, seen[core.FormatIdentifier("C7JOB", int64(n), 4)], "missing number %d", n)
			}

			var stored int
			require.NoError(t, s.DB().GetContext(ctx, &stored, s.DB().Rebind(
				"SELECT COUNT(DISTINCT job_number) FROM jobs WHERE tenant_id = ?"), 7))
			assert.Equal(t, workers, stored)
		})
	}
}

func TestAllocate_TenantsNumberIndependently(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			seedJobs(t, s, 7, "C7JOB0001", "C7JOB0002", "C7JOB0003")
			ctx := context.Background()

			id, err := allocateJob(ctx, seq, 8)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C8JOB0001"), id)

			id, err = allocateJob(ctx, seq, 7)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier("C7JOB0004"), id)
		})
	}
}

func TestAllocate_SeriesNumberIndependently(t *testing.T) {
	seq, _ := newSequencer(t, allocator.StrategyCounter)
	ctx := context.Background()

	_, err := allocateJob(ctx, seq, 7)
	require.NoError(t, err)

	id, err := seq.AllocateWith(ctx, 7, allocator.SeriesPart, 0, func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO inventory_parts (id, tenant_id, part_number, title, created_at) VALUES (?, ?, ?, ?, ?)"),
			uuid.NewString(), 7, id.String(), "Brake pad", time.Now().UTC())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C7PART0001"), id)
}

func TestAllocate_Width(t *testing.T) {
	seq, s := newSequencer(t, allocator.StrategyScan)
	ctx := context.Background()

	id, err := seq.AllocateWith(ctx, 7, allocator.SeriesJob, 6, func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
		return insertJob(ctx, tx, 7, id.String())
	})
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C7JOB000001"), id)

	seedJobs(t, s, 9, "C9JOB9999")
	id, err = allocateJob(ctx, seq, 9)
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C9JOB10000"), id)
}

func TestAllocate_RejectsInvalidInput(t *testing.T) {
	seq, s := newSequencer(t, allocator.StrategyCounter)
	ctx := context.Background()

	tests := []struct {
		name   string
		tenant core.TenantID
		series core.SeriesName
		width  int
		want   error
	}{
		{"zero tenant", 0, allocator.SeriesJob, 4, core.ErrInvalidTenant},
		{"negative tenant", -3, allocator.SeriesJob, 4, core.ErrInvalidTenant},
		{"unknown series", 7, "INV", 4, core.ErrUnknownSeries},
		{"negative width", 7, allocator.SeriesJob, -1, core.ErrInvalidWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.WithTx(ctx, func(tx *store.Tx) error {
				_, err := seq.Allocate(ctx, tx, tt.tenant, tt.series, tt.width)
				return err
			})
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsInputError(err))
		})
	}
}

func TestAllocate_CounterContinuesAfterScanPeriod(t *testing.T) {
	s := testkit.NewSQLiteStore(t, 10*time.Second)
	counter := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyCounter, core.DefaultWidth))
	scan := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyScan, core.DefaultWidth))
	ctx := context.Background()

	steps := []struct {
		seq  *allocator.Sequencer
		want core.Identifier
	}{
		{counter, "C7JOB0001"},
		{scan, "C7JOB0002"},
		{counter, "C7JOB0003"},
		{scan, "C7JOB0004"},
		{scan, "C7JOB0005"},
		{counter, "C7JOB0006"},
	}
	for _, step := range steps {
		id, err := allocateJob(ctx, step.seq, 7)
		require.NoError(t, err)
		assert.Equal(t, step.want, id)
	}
}

func TestAllocate_CounterResyncsPastExternalRecords(t *testing.T) {
	seq, s := newSequencer(t, allocator.StrategyCounter)
	ctx := context.Background()

	id, err := allocateJob(ctx, seq, 7)
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C7JOB0001"), id)

	seedJobs(t, s, 7, "C7JOB0002", "C7JOB0003")

	id, err = allocateJob(ctx, seq, 7)
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C7JOB0004"), id)

	id, err = allocateJob(ctx, seq, 7)
	require.NoError(t, err)
	assert.Equal(t, core.Identifier("C7JOB0005"), id)

	var lastIssued int64
	require.NoError(t, s.DB().GetContext(ctx, &lastIssued, s.DB().Rebind(
		"SELECT last_issued FROM id_series_counters WHERE tenant_id = ? AND series = ?"), 7, "JOB"))
	assert.Equal(t, int64(5), lastIssued)
}

func TestAllocate_PostgresCounterContinuesAfterScanPeriod(t *testing.T) {
	s := testkit.NewPostgresStore(t, 2*time.Second)
	counter := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyCounter, core.DefaultWidth))
	scan := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyScan, core.DefaultWidth))
	tenant := core.TenantID(testkit.UniqueTenant())
	ctx := context.Background()

	for i, seq := range []*allocator.Sequencer{counter, scan, counter, scan, counter} {
		id, err := allocateJob(ctx, seq, tenant)
		require.NoError(t, err)
		assert.Equal(t, core.FormatIdentifier(core.SeriesPrefix(tenant, allocator.SeriesJob), int64(i+1), 4), id)
	}
}

func TestAllocate_ScanRollbackLeavesCounterUntouched(t *testing.T) {
	seq, s := newSequencer(t, allocator.StrategyScan)
	ctx := context.Background()

	errAbort := errors.New("abort")
	_, err := seq.AllocateWith(ctx, 7, allocator.SeriesJob, 0, func(context.Context, *store.Tx, core.Identifier) error {
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	var rows int
	require.NoError(t, s.DB().GetContext(ctx, &rows, "SELECT COUNT(*) FROM id_series_counters"))
	assert.Zero(t, rows)
}

func TestAllocate_DuplicateInsertIsClassified(t *testing.T) {
	seq, s := newSequencer(t, allocator.StrategyCounter)
	seedJobs(t, s, 7, "C7JOB0001")
	ctx := context.Background()

	_, err := seq.AllocateWith(ctx, 7, allocator.SeriesJob, 0, func(ctx context.Context, tx *store.Tx, _ core.Identifier) error {
		return insertJob(ctx, tx, 7, "C7JOB0001")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)
	assert.True(t, core.IsRetryable(err))
}

func TestAllocate_LockWaitTimesOut(t *testing.T) {
	s := testkit.NewSQLiteStore(t, 100*time.Millisecond)
	seq := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyScan, 4))
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithTx(ctx, func(tx *store.Tx) error {
			if _, err := seq.Allocate(ctx, tx, 7, allocator.SeriesJob, 0); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	_, err := allocateJob(ctx, seq, 7)
	close(release)
	require.NoError(t, <-done)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllocationTimeout)
	assert.True(t, core.IsRetryable(err))
}

func TestAllocate_PostgresTenantsDoNotBlock(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			s := testkit.NewPostgresStore(t, 2*time.Second)
			seq := allocator.NewSequencer(s, allocator.NewRegistry(strategy, 4))
			ctx := context.Background()
			busy := core.TenantID(testkit.UniqueTenant())
			free := core.TenantID(testkit.UniqueTenant())

			holding := make(chan struct{})
			release := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				done <- s.WithTx(ctx, func(tx *store.Tx) error {
					id, err := seq.Allocate(ctx, tx, busy, allocator.SeriesJob, 0)
					if err != nil {
						return err
					}
					if err := insertJob(ctx, tx, busy, id.String()); err != nil {
						return err
					}
					close(holding)
					<-release
					return nil
				})
			}()
			<-holding
			defer func() {
				close(release)
				require.NoError(t, <-done)
			}()

			start := time.Now()
			id, err := allocateJob(ctx, seq, free)
			require.NoError(t, err)
			assert.Equal(t, core.Identifier(fmt.Sprintf("C%dJOB0001", free)), id)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestAllocate_PostgresLockTimeout(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			s := testkit.NewPostgresStore(t, 200*time.Millisecond)
			seq := allocator.NewSequencer(s, allocator.NewRegistry(strategy, 4))
			ctx := context.Background()
			tenant := core.TenantID(testkit.UniqueTenant())

			// Seed the counter row so both strategies contend on an existing lock.
			_, err := allocateJob(ctx, seq, tenant)
			require.NoError(t, err)

			holding := make(chan struct{})
			release := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				done <- s.WithTx(ctx, func(tx *store.Tx) error {
					if _, err := seq.Allocate(ctx, tx, tenant, allocator.SeriesJob, 0); err != nil {
						return err
					}
					close(holding)
					<-release
					return nil
				})
			}()
			<-holding

			_, err = allocateJob(ctx, seq, tenant)
			close(release)
			require.NoError(t, <-done)

			assert.ErrorIs(t, err, core.ErrAllocationTimeout)
		})
	}
}

func TestAllocate_PostgresConcurrentCallsAreUnique(t *testing.T) {
	const workers = 100

	s := testkit.NewPostgresStore(t, 10*time.Second)
	seq := allocator.NewSequencer(s, allocator.NewRegistry(allocator.StrategyCounter, 4))
	tenant := core.TenantID(testkit.UniqueTenant())

	ids := make(chan core.Identifier, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			id, err := allocateJob(context.Background(), seq, tenant)
			ids <- id
			return err
		})
	}
	require.NoError(t, g.Wait())
	close(ids)

	seen := make(map[core.Identifier]bool, workers)
	for id := range ids {
		assert.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func TestAllocate_ContinuesGeneratedHistory(t *testing.T) {
	cfg := testkit.DefaultHistoryConfig()
	history := testkit.NewHistoryGenerator(cfg).Generate()

	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			seq, s := newSequencer(t, strategy)
			for _, tenant := range cfg.Tenants {
				seedJobs(t, s, tenant, history.Identifiers[tenant]...)
			}

			for _, tenant := range cfg.Tenants {
				id, err := allocateJob(context.Background(), seq, tenant)
				require.NoError(t, err)
				assert.Equal(t, history.Next(tenant, allocator.SeriesJob, 4), id, "tenant %d", tenant)
			}
		})
	}
}
