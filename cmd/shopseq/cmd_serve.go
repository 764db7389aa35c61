package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"shopseq/internal/api"
	"shopseq/internal/observability"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.Shutdown(context.Background())

		cfg := c.Config
		shutdownTracer, err := observability.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.Service, cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.WithError(err).Warn("tracer shutdown failed")
			}
		}()

		return api.New(c.JobService, c.DocumentService, c.Store.DB(), cfg.Addr()).Run(ctx, shutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful HTTP shutdown timeout")
}
