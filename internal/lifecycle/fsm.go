// File: internal/lifecycle/fsm.go
package lifecycle

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// FSM drives one provenance through its lifecycle. It owns the current Context;
// the mutex only guards snapshots taken by observers while a hook is running.
type FSM struct {
	mu      sync.RWMutex
	current Context
	logger  *zap.Logger
}

// NewFSM creates a lifecycle for p in the Discovered state.
func NewFSM(p Provenance, env *Env) *FSM {
	lc := NewContext(p, env)
	return &FSM{
		current: lc,
		logger:  lc.env.Log().With(zap.String("component", "lifecycle"), zap.String("provenance", p.Key())),
	}
}

// Snapshot returns the current Context.
func (f *FSM) Snapshot() Context {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// State returns the current state.
func (f *FSM) State() State {
	return f.Snapshot().state
}

// Advance performs one transition. Calling it on a terminal lifecycle panics.
func (f *FSM) Advance(ctx context.Context) Context {
	from := f.Snapshot()
	next := Step(ctx, from)

	f.mu.Lock()
	f.current = next
	f.mu.Unlock()

	f.logger.Debug("Lifecycle transition.",
		zap.Stringer("from", from.state),
		zap.Stringer("to", next.state))
	return next
}

// RunUntil advances until the lifecycle reaches target or ends. target should be
// a resting state (Inspected, Evaluated, Installed or Loaded).
func (f *FSM) RunUntil(ctx context.Context, target State) Context {
	lc := f.Snapshot()
	for !lc.IsTerminal() && lc.state < target {
		lc = f.Advance(ctx)
	}
	return lc
}

// Reject ends a non-terminal lifecycle with an UNUSABLE issue raised by the
// caller. It is a no-op on a lifecycle that already ended.
func (f *FSM) Reject(issue schemas.LifecycleIssue) Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current.IsTerminal() {
		return f.current
	}
	f.current = f.current.Reject(issue)
	f.logger.Debug("Lifecycle rejected.", zap.String("reason", issue.Message))
	return f.current
}
