// File: internal/orchestrator/orchestrator.go
// Description: Composition root for one lifecycle run. It fills the directory
// from configuration and arguments, drives the engine and reports the outcome.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/directory"
	"github.com/xkilldash9x/nodelib/internal/discovery"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/provenance"
)

const (
	searchDepth    = 4
	persistTimeout = 30 * time.Second
)

// Engine runs a batch of lifecycles to completion.
type Engine interface {
	Run(ctx context.Context, entries []lifecycle.Entry) ([]lifecycle.Context, error)
}

// ReportStore persists run reports.
type ReportStore interface {
	SaveReports(ctx context.Context, reports []schemas.LibraryReport) error
}

// RunSummary is the outcome of one lifecycle run.
type RunSummary struct {
	RunID   string
	Reports []schemas.LibraryReport
}

// Count returns how many reports ended with the given status.
func (s *RunSummary) Count(status schemas.LibraryStatus) int {
	n := 0
	for _, r := range s.Reports {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Orchestrator manages the high-level flow of a lifecycle run.
type Orchestrator struct {
	cfg       config.Interface
	logger    *zap.Logger
	directory *directory.Directory
	env       *lifecycle.Env
	engine    Engine
	store     ReportStore
	metrics   *observability.Metrics
	now       func() time.Time
	newRunID  func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables report persistence.
func WithStore(s ReportStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithMetrics records library outcomes and enables the metrics textfile.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates a new Orchestrator.
func New(
	cfg config.Interface,
	logger *zap.Logger,
	dir *directory.Directory,
	env *lifecycle.Env,
	eng Engine,
	opts ...Option,
) (*Orchestrator, error) {
	if cfg == nil ||
		logger == nil ||
		dir == nil ||
		env == nil ||
		eng == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	o := &Orchestrator{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "orchestrator")),
		directory: dir,
		env:       env,
		engine:    eng,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Directory exposes the candidate catalog.
func (o *Orchestrator) Directory() *directory.Directory { return o.directory }

// Populate fills the directory. Search path manifests and user specifiers are
// active, curated specifiers are inactive until listed under activate, the
// sandbox directory is active, and args are active user candidates. A bad
// configured specifier is logged and skipped; a bad argument is an error.
func (o *Orchestrator) Populate(ctx context.Context, args []string) error {
	lib := o.cfg.Library()

	found, err := discovery.Scan(ctx, lib.SearchPaths, searchDepth)
	if err != nil {
		return fmt.Errorf("failed to scan search paths: %w", err)
	}
	for _, p := range found {
		o.directory.AddUserCandidate(p)
	}

	for _, specifier := range lib.Curated {
		if p, ok := o.parseConfigured(specifier, "curated"); ok {
			o.directory.AddCuratedCandidate(p)
		}
	}
	for _, specifier := range lib.User {
		if p, ok := o.parseConfigured(specifier, "user"); ok {
			o.directory.AddUserCandidate(p)
		}
	}
	for _, specifier := range lib.Activate {
		p, ok := o.parseConfigured(specifier, "activate")
		if !ok {
			continue
		}
		if !o.directory.SetActive(p.Key(), true) {
			o.logger.Warn("Cannot activate unknown library candidate.", zap.String("provenance", p.Key()))
		}
	}
	if lib.SandboxDir != "" {
		o.directory.AddUserCandidate(provenance.NewSandbox(lib.SandboxDir))
	}

	var errs []error
	for _, specifier := range args {
		p, err := discovery.Parse(specifier)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		o.directory.AddUserCandidate(p)
	}

	o.logger.Info("Library directory populated.",
		zap.Int("candidates", o.directory.Len()),
		zap.Int("active", len(o.directory.ActiveCandidates())))
	return errors.Join(errs...)
}

func (o *Orchestrator) parseConfigured(specifier, source string) (lifecycle.Provenance, bool) {
	p, err := discovery.Parse(specifier)
	if err != nil {
		o.logger.Warn("Skipping invalid library specifier.",
			zap.String("list", source), zap.String("specifier", specifier), zap.Error(err))
		return nil, false
	}
	return p, true
}

// Run takes every active candidate through its lifecycle and reports the result.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	return o.RunEntries(ctx, o.directory.ActiveCandidates())
}

// RunEntries runs the given entries as one batch.
func (o *Orchestrator) RunEntries(ctx context.Context, entries []lifecycle.Entry) (*RunSummary, error) {
	runID := o.newRunID()
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("Orchestrator starting lifecycle run", zap.Int("libraries", len(entries)))

	results, runErr := o.engine.Run(ctx, entries)
	if results == nil && runErr != nil {
		return nil, runErr
	}

	recordedAt := o.now().UTC()
	summary := &RunSummary{RunID: runID, Reports: make([]schemas.LibraryReport, len(results))}
	for i, lc := range results {
		summary.Reports[i] = BuildReport(runID, lc, recordedAt)
		o.metrics.ObserveOutcome(summary.Reports[i].Status.String())
	}
	o.announce(logger, summary.Reports)

	if o.store != nil {
		// Persist even when ctx was cancelled mid-run.
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := o.store.SaveReports(persistCtx, summary.Reports); err != nil {
			logger.Error("Failed to persist library reports", zap.Error(err))
		}
	}
	if err := o.metrics.WriteTextfile(o.cfg.Metrics().Textfile); err != nil {
		logger.Warn("Failed to export metrics.", zap.Error(err))
	}

	logger.Info("Lifecycle run finished",
		zap.Int("usable", summary.Count(schemas.StatusUsable)),
		zap.Int("flawed", summary.Count(schemas.StatusFlawed)),
		zap.Int("unusable", summary.Count(schemas.StatusUnusable)))
	return summary, runErr
}

// Inspect runs inspection and evaluation for a single specifier without
// installing or loading anything.
func (o *Orchestrator) Inspect(ctx context.Context, specifier string) (lifecycle.Context, error) {
	p, err := discovery.Parse(specifier)
	if err != nil {
		return lifecycle.Context{}, err
	}
	return lifecycle.NewFSM(p, o.env).RunUntil(ctx, lifecycle.StateEvaluated), nil
}

// announce logs the user-facing banner for every library that did not load cleanly.
func (o *Orchestrator) announce(logger *zap.Logger, reports []schemas.LibraryReport) {
	for _, r := range reports {
		fields := []zap.Field{
			zap.String("library", r.LibraryName),
			zap.String("provenance", r.ProvenanceKey),
		}
		switch r.Status {
		case schemas.StatusUnusable:
			logger.Warn("Library skipped.", append(fields, zap.Strings("reasons", issueMessages(r.Issues)))...)
		case schemas.StatusFlawed:
			logger.Warn("Library loaded with warnings.", append(fields, zap.Strings("warnings", issueMessages(r.Issues)))...)
		default:
			logger.Info("Library loaded.", append(fields, zap.Bool("enabled", r.Enabled))...)
		}
	}
}

func issueMessages(issues []schemas.LifecycleIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}
