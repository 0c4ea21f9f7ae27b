// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// ErrAlreadyRunning is returned when Run is called while a previous run is in flight.
var ErrAlreadyRunning = errors.New("lifecycle engine is already running")

const poolReleaseTimeout = 10 * time.Second

// LifecycleEngine drives many library lifecycles through three phases: a
// concurrent inspect+evaluate fan-out ending in a barrier, cross-library name
// reconciliation, a bounded install pool, then sequential loading.
type LifecycleEngine struct {
	cfg    config.Interface
	env    *lifecycle.Env
	logger *zap.Logger

	// stateLock protects the running flag; loads must not interleave across runs.
	stateLock sync.Mutex
	isRunning bool
}

// New creates a LifecycleEngine. env is shared by every lifecycle it starts.
func New(cfg config.Interface, env *lifecycle.Env, logger *zap.Logger) (*LifecycleEngine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if env == nil {
		return nil, errors.New("lifecycle environment cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &LifecycleEngine{
		cfg:    cfg,
		env:    env,
		logger: logger.With(zap.String("component", "lifecycle_engine")),
	}, nil
}

// Run takes every entry to a terminal state and returns the final contexts in
// the order the entries were given, which must be discovery order. The returned
// error is non-nil only when ctx ended the run early; contexts are returned
// regardless.
func (e *LifecycleEngine) Run(ctx context.Context, entries []lifecycle.Entry) ([]lifecycle.Context, error) {
	e.stateLock.Lock()
	if e.isRunning {
		e.stateLock.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.isRunning = true
	e.stateLock.Unlock()
	defer func() {
		e.stateLock.Lock()
		e.isRunning = false
		e.stateLock.Unlock()
	}()

	fsms := make([]*lifecycle.FSM, len(entries))
	for i, entry := range entries {
		fsms[i] = lifecycle.NewFSM(entry.Provenance, e.env)
	}

	e.logger.Info("Starting lifecycle run.", zap.Int("libraries", len(fsms)))

	e.evaluateAll(ctx, fsms)
	e.reconcileNames(fsms)
	if err := e.installAll(ctx, fsms); err != nil {
		return nil, err
	}
	e.loadAll(ctx, fsms)

	results := make([]lifecycle.Context, len(fsms))
	for i, f := range fsms {
		results[i] = f.Snapshot()
	}
	e.logger.Info("Lifecycle run finished.", zap.Int("libraries", len(results)))

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("lifecycle run interrupted: %w", err)
	}
	return results, nil
}

// evaluateAll runs inspection and evaluation concurrently. Wait is the barrier
// reconciliation depends on.
func (e *LifecycleEngine) evaluateAll(ctx context.Context, fsms []*lifecycle.FSM) {
	var g errgroup.Group
	g.SetLimit(positive(e.cfg.Engine().Concurrency, 4))
	for _, f := range fsms {
		g.Go(func() error {
			defer e.recoverHook(f)
			stageCtx, cancel := e.stageContext(ctx)
			defer cancel()
			f.RunUntil(stageCtx, lifecycle.StateEvaluated)
			return nil
		})
	}
	_ = g.Wait()
}

// reconcileNames rejects every library whose effective name was already claimed
// by an earlier entry. The first discovered library keeps the name.
func (e *LifecycleEngine) reconcileNames(fsms []*lifecycle.FSM) {
	claimed := make(map[string]string, len(fsms))
	for _, f := range fsms {
		lc := f.Snapshot()
		if lc.State() != lifecycle.StateEvaluated {
			continue
		}
		name := lc.EffectiveName()
		key := lc.Provenance().Key()
		if owner, taken := claimed[name]; taken {
			e.logger.Warn("Library name conflict, rejecting later candidate.",
				zap.String("name", name),
				zap.String("kept", owner),
				zap.String("rejected", key))
			f.Reject(schemas.NewIssue(schemas.StatusUnusable,
				"library name %q is already provided by %s", name, owner))
			continue
		}
		claimed[name] = key
	}
}

// installAll pushes every surviving library through installation on a bounded
// worker pool.
func (e *LifecycleEngine) installAll(ctx context.Context, fsms []*lifecycle.FSM) error {
	workers := positive(e.cfg.Engine().InstallWorkers, 1)
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		e.logger.Error("Install task panicked.", zap.Any("panic", p))
	}))
	if err != nil {
		return fmt.Errorf("failed to create install pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			e.logger.Warn("Install pool did not release cleanly.", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	for _, f := range fsms {
		if f.State() != lifecycle.StateEvaluated {
			continue
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer e.recoverHook(f)
			stageCtx, cancel := e.stageContext(ctx)
			defer cancel()
			f.RunUntil(stageCtx, lifecycle.StateInstalled)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			f.Reject(schemas.NewIssue(schemas.StatusUnusable, "could not schedule installation: %v", err))
		}
	}
	wg.Wait()
	return nil
}

// loadAll registers libraries one at a time, in discovery order, so registry
// conflicts resolve the same way on every run.
func (e *LifecycleEngine) loadAll(ctx context.Context, fsms []*lifecycle.FSM) {
	for _, f := range fsms {
		if f.State() != lifecycle.StateInstalled {
			continue
		}
		e.load(ctx, f)
	}
}

func (e *LifecycleEngine) load(ctx context.Context, f *lifecycle.FSM) {
	defer e.recoverHook(f)
	stageCtx, cancel := e.stageContext(ctx)
	defer cancel()
	f.RunUntil(stageCtx, lifecycle.StateLoaded)
}

// recoverHook turns a panicking provenance hook into an UNUSABLE lifecycle so
// the rest of the run continues. It must be deferred directly.
func (e *LifecycleEngine) recoverHook(f *lifecycle.FSM) {
	r := recover()
	if r == nil {
		return
	}
	lc := f.Snapshot()
	stage := strings.ToLower(lc.State().String())
	e.logger.Error("Lifecycle hook panicked.",
		zap.String("provenance", lc.Provenance().Key()),
		zap.String("stage", stage),
		zap.Any("panic", r))
	f.Reject(schemas.NewIssue(schemas.StatusUnusable, "library panicked while %s: %v", stage, r))
}

func (e *LifecycleEngine) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.cfg.Engine().StageTimeout
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
