package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopseq/internal/api"
	"shopseq/internal/config"
	"shopseq/internal/container"
	"shopseq/internal/logging"
	"shopseq/internal/observability"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load application configuration
	appConfig, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(appConfig.Logging.Level, appConfig.Logging.Format, os.Stdout)
	log.WithField("config", appConfig.String()).Info("configuration loaded")

	shutdownTracer, err := observability.InitTracer(appConfig.Tracing.Enabled, appConfig.Tracing.Service, appConfig.Tracing.Endpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	// Open the store, migrate and wire services
	appContainer, err := container.Bootstrap(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	server := api.New(appContainer.JobService, appContainer.DocumentService, appContainer.Store.DB(), appConfig.Addr())
	if err := server.Run(ctx, shutdownTimeout); err != nil {
		log.WithError(err).Error("HTTP server failed")
		return
	}
	log.Info("server stopped")
}
