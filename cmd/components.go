// File: cmd/components.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/directory"
	"github.com/xkilldash9x/nodelib/internal/engine"
	"github.com/xkilldash9x/nodelib/internal/environment"
	"github.com/xkilldash9x/nodelib/internal/gitsource"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/orchestrator"
	"github.com/xkilldash9x/nodelib/internal/process"
	"github.com/xkilldash9x/nodelib/internal/registry"
	"github.com/xkilldash9x/nodelib/internal/store"
)

// components holds the services wired for a single command invocation.
type components struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *registry.Registry
	Metrics      *observability.Metrics
	store        *store.Store
}

// Shutdown releases resources held by the components.
func (c *components) Shutdown() {
	if c.store != nil {
		c.store.Close()
	}
}

// errNoDatabase is returned by commands that need the report store when none is configured.
var errNoDatabase = errors.New("no database configured; set database.url or NODELIB_DATABASE_URL")

// openStore connects to the report database at url.
func openStore(ctx context.Context, url string, logger *zap.Logger) (*store.Store, error) {
	if url == "" {
		return nil, errNoDatabase
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to report store: %w", err)
	}
	return st, nil
}

// initializeComponents wires every service from configuration. The database is
// optional; without a URL reports are only printed.
func initializeComponents(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*components, error) {
	c := &components{Metrics: observability.NewMetrics()}

	libCfg := cfg.Library()
	provisioner, err := environment.NewProvisioner(libCfg, process.NewExecRunner(logger), logger,
		environment.WithMetrics(c.Metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create environment provisioner: %w", err)
	}

	fetcher := gitsource.NewFetcher(cfg.GitHub(), libCfg.DataDir, logger)
	c.Registry = registry.New(registry.WithLogger(logger))

	env := &lifecycle.Env{
		Logger:        logger,
		Provisioner:   provisioner,
		Registrar:     c.Registry,
		Fetcher:       fetcher,
		Metrics:       c.Metrics,
		EngineVersion: libCfg.EngineVersion,
		NameOverrides: libCfg.NameOverrides,
		Disabled:      libCfg.Disabled,
		SandboxName:   libCfg.SandboxName,
	}

	eng, err := engine.New(cfg, env, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle engine: %w", err)
	}

	opts := []orchestrator.Option{orchestrator.WithMetrics(c.Metrics)}
	if url := cfg.Database().URL; url != "" {
		st, err := openStore(ctx, url, logger)
		if err != nil {
			return nil, err
		}
		c.store = st
		if err := st.EnsureSchema(ctx); err != nil {
			c.Shutdown()
			return nil, err
		}
		opts = append(opts, orchestrator.WithStore(st))
		logger.Info("Report persistence enabled.")
	}

	orch, err := orchestrator.New(cfg, logger, directory.New(logger), env, eng, opts...)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	c.Orchestrator = orch
	return c, nil
}
