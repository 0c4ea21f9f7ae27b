// File: internal/lifecycle/step.go
package lifecycle

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// ErrNoSchema marks a lifecycle that reached a post-inspection stage without a schema.
var ErrNoSchema = errors.New("no library schema available")

// Step performs exactly one transition and returns the resulting Context. Entering
// an "-ing" state is a pure transition; leaving one calls the matching provenance
// hook. Step panics when called on a terminal Context.
func Step(ctx context.Context, lc Context) Context {
	switch lc.state {
	case StateDiscovered:
		return lc.moveTo(StateInspecting)
	case StateInspecting:
		return runInspect(ctx, lc)
	case StateInspected:
		return lc.moveTo(StateEvaluating)
	case StateEvaluating:
		return runStage(ctx, lc, StateEvaluated, func(c Context) ([]schemas.LifecycleIssue, Context) {
			res := c.provenance.Evaluate(ctx, c)
			c.evaluation = &res
			return res.Issues, c
		})
	case StateEvaluated:
		return lc.moveTo(StateInstalling)
	case StateInstalling:
		return runStage(ctx, lc, StateInstalled, func(c Context) ([]schemas.LifecycleIssue, Context) {
			res := c.provenance.Install(ctx, c)
			c.installation = &res
			return res.Issues, c
		})
	case StateInstalled:
		return lc.moveTo(StateLoading)
	case StateLoading:
		return runStage(ctx, lc, StateLoaded, func(c Context) ([]schemas.LifecycleIssue, Context) {
			res := c.provenance.LoadLibrary(ctx, c)
			c.loaded = &res
			return res.Issues, c
		})
	default:
		panic("lifecycle: cannot step terminal context in state " + lc.state.String())
	}
}

func runInspect(ctx context.Context, lc Context) Context {
	if next, cancelled := abortIfCancelled(ctx, lc); cancelled {
		return next
	}
	res := lc.provenance.Inspect(ctx, lc)
	lc.inspection = &res
	next := lc.record(res.Issues)
	if res.Schema == nil {
		// A missing schema is fatal even when the provenance reported no issue.
		if !schemas.HasUnusable(res.Issues) {
			next = next.record([]schemas.LifecycleIssue{
				schemas.NewIssue(schemas.StatusUnusable, "inspection of %s produced no schema", lc.provenance),
			})
		}
		return next.finish(StateUnusable)
	}
	if schemas.HasUnusable(res.Issues) {
		return next.finish(StateUnusable)
	}
	return next.moveTo(StateInspected)
}

// runStage runs a post-inspection hook and gates on its issues.
func runStage(ctx context.Context, lc Context, success State, hook func(Context) ([]schemas.LifecycleIssue, Context)) Context {
	if lc.Schema() == nil {
		return lc.record([]schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "%s: %v", lc.state.stage(), ErrNoSchema),
		}).finish(StateUnusable)
	}
	if next, cancelled := abortIfCancelled(ctx, lc); cancelled {
		return next
	}
	issues, updated := hook(lc)
	next := updated.record(issues)
	if schemas.HasUnusable(issues) {
		return next.finish(StateUnusable)
	}
	return next.finish(success)
}

func abortIfCancelled(ctx context.Context, lc Context) (Context, bool) {
	if err := ctx.Err(); err != nil {
		return lc.record([]schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "lifecycle aborted before %s: %v", lc.state.stage(), err),
		}).finish(StateUnusable), true
	}
	return lc, false
}

// record appends stage issues and counts them.
func (c Context) record(issues []schemas.LifecycleIssue) Context {
	stage := c.state.stage()
	for _, issue := range issues {
		c.env.Metrics.ObserveIssue(stage, issue.Severity.String())
	}
	return c.withIssues(issues...)
}

func (c Context) finish(s State) Context {
	next := c.moveTo(s)
	if s == StateUnusable {
		next.env.Log().Debug("Library lifecycle ended unusable.",
			zap.String("provenance", c.provenance.Key()),
			zap.String("stage", c.state.stage()),
			zap.Int("issues", len(next.issues)))
	}
	return next
}
