package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopseq/app"
	"shopseq/domain/core"
	"shopseq/internal/allocator"
	"shopseq/internal/container"
	"shopseq/internal/store"
	"shopseq/models"

	"github.com/spf13/cobra"
)

var (
	allocTenant int64
	allocSeries string
	allocWidth  int
	allocTitle  string
	allocDryRun bool
)

// errDryRun rolls back a dry-run work unit after the identifier is known
var errDryRun = errors.New("dry run")

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Allocate the next identifier of a tenant's series and create its record",
	Example: `  shopseq allocate --tenant 7 --series JOB --title "Brake service"
  shopseq allocate --tenant 7 --series QUO --width 6 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tenant := core.TenantID(allocTenant)
		series, err := core.ParseSeriesName(allocSeries)
		if err != nil {
			return err
		}

		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.Shutdown(ctx)

		var preview core.Identifier
		persist, err := persistFor(ctx, c, tenant, series, &preview)
		if err != nil {
			return err
		}

		id, err := c.Sequencer.AllocateWith(ctx, tenant, series, allocWidth, persist)
		if allocDryRun && errors.Is(err, errDryRun) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (dry run, not recorded)\n", preview)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// persistFor returns the callback that writes the record owning a new identifier.
// In dry-run mode it stores the identifier in preview and rolls the unit back.
func persistFor(ctx context.Context, c *container.Container, tenant core.TenantID, series core.SeriesName, preview *core.Identifier) (func(context.Context, *store.Tx, core.Identifier) error, error) {
	if allocDryRun {
		return func(_ context.Context, _ *store.Tx, id core.Identifier) error {
			*preview = id
			return errDryRun
		}, nil
	}

	now := time.Now().UTC()
	if series == allocator.SeriesJob {
		token, err := c.Tokens.AllocateToken(ctx, app.JobTokenPrefix, c.Config.Allocator.TokenBytes)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
			return c.JobRepo.Insert(ctx, tx, &models.Job{
				ID:           core.NewID().String(),
				TenantID:     int64(tenant),
				JobNumber:    id.String(),
				Token:        token.String(),
				CustomerName: allocTitle,
				CreatedAt:    now,
			})
		}, nil
	}

	return func(ctx context.Context, tx *store.Tx, id core.Identifier) error {
		return c.DocumentRepo.Insert(ctx, tx, &models.Document{
			ID:        core.NewID().String(),
			TenantID:  int64(tenant),
			Series:    string(series),
			Number:    id.String(),
			Title:     allocTitle,
			CreatedAt: now,
		})
	}, nil
}

func init() {
	allocateCmd.Flags().Int64Var(&allocTenant, "tenant", 0, "Tenant id (required)")
	allocateCmd.Flags().StringVar(&allocSeries, "series", string(allocator.SeriesJob), "Series name (JOB, PART, PUR, QUO)")
	allocateCmd.Flags().IntVar(&allocWidth, "width", 0, "Minimum digit count (0 uses the series default)")
	allocateCmd.Flags().StringVar(&allocTitle, "title", "", "Title or customer name stored on the record")
	allocateCmd.Flags().BoolVar(&allocDryRun, "dry-run", false, "Show the next identifier without recording it")
	_ = allocateCmd.MarkFlagRequired("tenant")
}
