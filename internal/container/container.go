package container

import (
	"context"
	"fmt"

	"shopseq/adapters/sqlrepo"
	"shopseq/app"
	"shopseq/internal/allocator"
	"shopseq/internal/config"
	"shopseq/internal/errors"
	"shopseq/internal/logging"
	"shopseq/internal/migration"
	"shopseq/internal/store"
	"shopseq/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	Store *store.Store

	// Repositories (data access layer)
	JobRepo      ports.JobRepository
	DocumentRepo ports.DocumentRepository

	// Allocators
	Registry  *allocator.Registry
	Sequencer *allocator.Sequencer
	Tokens    *allocator.TokenAllocator

	// Services
	JobService      *app.JobService
	DocumentService *app.DocumentService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Container{Config: cfg}, nil
}

// Bootstrap opens the configured store, migrates it and wires every component
func Bootstrap(ctx context.Context, cfg *config.Config) (*Container, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, store.Options{
		Driver:       cfg.Database.Driver,
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LockTimeout:  cfg.Allocator.LockTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := migration.NewRunner().Run(ctx, s.DB()); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}

	if err := c.InitWithStore(s); err != nil {
		s.Close()
		return nil, err
	}
	return c, nil
}

// InitWithStore initializes components that require database access
func (c *Container) InitWithStore(s *store.Store) error {
	if s == nil {
		return fmt.Errorf("store cannot be nil")
	}
	c.Store = s

	if err := c.initAllocators(); err != nil {
		return fmt.Errorf("failed to initialize allocators: %w", err)
	}

	c.initRepositories()

	c.Tokens = allocator.NewTokenAllocator(c.JobRepo,
		allocator.WithMaxAttempts(c.Config.Allocator.TokenMaxAttempts),
	)

	c.initServices()

	logging.WithComponent("container").WithFields(logging.Fields{
		"driver":   s.Dialect().Name(),
		"strategy": c.Config.Allocator.Strategy,
		"series":   c.Registry.Names(),
	}).Info("container initialized")
	return nil
}

// initAllocators builds the series registry and the sequential allocator
func (c *Container) initAllocators() error {
	strategy, err := allocator.ParseStrategy(c.Config.Allocator.Strategy)
	if err != nil {
		return err
	}
	c.Registry = allocator.NewRegistry(strategy, c.Config.Allocator.Width)
	c.Sequencer = allocator.NewSequencer(c.Store, c.Registry)
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.JobRepo = sqlrepo.NewJobRepository(c.Store)
	c.DocumentRepo = sqlrepo.NewDocumentRepository(c.Store, c.Registry)
}

func (c *Container) initServices() {
	retry := app.RetryPolicy{
		MaxAttempts: c.Config.Allocator.CreateMaxAttempts,
		Backoff:     app.DefaultRetryPolicy.Backoff,
	}
	c.JobService = app.NewJobService(c.Store, c.Sequencer, c.Tokens, c.JobRepo, c.Config.Allocator.TokenBytes, retry)
	c.DocumentService = app.NewDocumentService(c.Store, c.Sequencer, c.DocumentRepo, retry)
}

// Shutdown releases the database connection pool
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Store == nil {
		return nil
	}
	logging.WithComponent("container").Info("shutting down")
	return c.Store.Close()
}
