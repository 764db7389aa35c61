package main

import (
	"fmt"
	"sync"
	"time"

	"shopseq/models"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchTenants   int
	benchWorkers   int
	benchPerWorker int
	benchTenantID  int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Create jobs concurrently and verify every number and token is unique",
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchTenants < 1 || benchWorkers < 1 || benchPerWorker < 1 {
			return fmt.Errorf("--tenants, --workers and --per-worker must be positive")
		}

		ctx := cmd.Context()
		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.Shutdown(ctx)

		base := benchTenantID
		if base <= 0 {
			base = time.Now().Unix() % 1_000_000 * 1000
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "shopseq bench\n")
		fmt.Fprintf(out, "  driver:     %s\n", c.Store.Dialect().Name())
		fmt.Fprintf(out, "  strategy:   %s\n", c.Config.Allocator.Strategy)
		fmt.Fprintf(out, "  tenants:    %d (from %d)\n", benchTenants, base)
		fmt.Fprintf(out, "  workers:    %d\n", benchWorkers)
		fmt.Fprintf(out, "  per-worker: %d\n\n", benchPerWorker)

		var (
			mu      sync.Mutex
			lats    []time.Duration
			numbers = make(map[string]bool)
			tokens  = make(map[string]bool)
			dupes   int
		)

		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < benchWorkers; w++ {
			tenantID := base + int64(w%benchTenants)
			g.Go(func() error {
				for i := 0; i < benchPerWorker; i++ {
					t0 := time.Now()
					job, err := c.JobService.CreateJob(gctx, tenantID, models.CreateJobInput{CustomerName: "bench"})
					if err != nil {
						return err
					}
					lat := time.Since(t0)

					mu.Lock()
					lats = append(lats, lat)
					key := fmt.Sprintf("%d/%s", tenantID, job.JobNumber)
					if numbers[key] || tokens[job.Token] {
						dupes++
					}
					numbers[key] = true
					tokens[job.Token] = true
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(out, "  created:    %d jobs in %s\n", len(lats), elapsed.Round(time.Millisecond))
		fmt.Fprintf(out, "  throughput: %.1f jobs/s\n", float64(len(lats))/elapsed.Seconds())
		summary, err := summarizeLatencies(lats)
		if err != nil {
			return fmt.Errorf("summarize latencies: %w", err)
		}
		fmt.Fprintf(out, "  mean:       %s\n", summary.Mean)
		fmt.Fprintf(out, "  p50:        %s\n", summary.P50)
		fmt.Fprintf(out, "  p99:        %s\n", summary.P99)
		fmt.Fprintf(out, "  duplicates: %d\n", dupes)

		if dupes > 0 {
			return fmt.Errorf("bench found %d duplicate identifiers", dupes)
		}
		return nil
	},
}

type latencySummary struct {
	Mean time.Duration
	P50  time.Duration
	P99  time.Duration
}

func summarizeLatencies(lats []time.Duration) (latencySummary, error) {
	data := make(stats.Float64Data, len(lats))
	for i, lat := range lats {
		data[i] = float64(lat)
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return latencySummary{}, err
	}
	p50, err := stats.Percentile(data, 50)
	if err != nil {
		return latencySummary{}, err
	}
	p99, err := stats.Percentile(data, 99)
	if err != nil {
		return latencySummary{}, err
	}

	return latencySummary{
		Mean: time.Duration(mean).Round(time.Microsecond),
		P50:  time.Duration(p50).Round(time.Microsecond),
		P99:  time.Duration(p99).Round(time.Microsecond),
	}, nil
}

func init() {
	benchCmd.Flags().IntVar(&benchTenants, "tenants", 4, "Number of tenants to spread workers over")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 16, "Concurrent workers")
	benchCmd.Flags().IntVar(&benchPerWorker, "per-worker", 25, "Jobs created by each worker")
	benchCmd.Flags().Int64Var(&benchTenantID, "tenant-base", 0, "First tenant id (0 picks one from the clock)")
}
