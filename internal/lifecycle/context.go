// File: internal/lifecycle/context.go
package lifecycle

import (
	"github.com/xkilldash9x/nodelib/api/schemas"
)

// Context is the accumulated state of one provenance's lifecycle. It is a value:
// every transition returns a new Context and never mutates the one it was given,
// so a Context handed to a hook cannot change underneath the caller.
type Context struct {
	provenance Provenance
	env        *Env
	state      State

	inspection   *schemas.InspectionResult
	evaluation   *schemas.EvaluationResult
	installation *schemas.InstallationResult
	loaded       *schemas.LibraryLoadedResult

	issues []schemas.LifecycleIssue
}

// NewContext starts a lifecycle in the Discovered state. It panics on a nil
// provenance.
func NewContext(p Provenance, env *Env) Context {
	if p == nil {
		panic("lifecycle: nil provenance")
	}
	if env == nil {
		env = &Env{}
	}
	return Context{provenance: p, env: env, state: StateDiscovered}
}

func (c Context) Provenance() Provenance { return c.provenance }
func (c Context) Env() *Env              { return c.env }
func (c Context) State() State           { return c.state }

func (c Context) Inspection() *schemas.InspectionResult     { return c.inspection }
func (c Context) Evaluation() *schemas.EvaluationResult     { return c.evaluation }
func (c Context) Installation() *schemas.InstallationResult { return c.installation }
func (c Context) Loaded() *schemas.LibraryLoadedResult      { return c.loaded }

// Schema returns the inspected schema, or nil before a successful inspection.
func (c Context) Schema() *schemas.LibrarySchema {
	if c.inspection == nil {
		return nil
	}
	return c.inspection.Schema
}

// SourcePath is the local path inspection read the library from.
func (c Context) SourcePath() string {
	if c.inspection == nil {
		return ""
	}
	return c.inspection.SourcePath
}

// LibraryName is the schema's declared name, empty before inspection succeeds.
func (c Context) LibraryName() string {
	if s := c.Schema(); s != nil {
		return s.Name
	}
	return ""
}

// EffectiveName is the declared name with any configured override applied.
func (c Context) EffectiveName() string {
	name := c.LibraryName()
	if name == "" {
		return ""
	}
	return c.env.EffectiveName(name)
}

// Issues returns a copy of every issue recorded so far, in stage order.
func (c Context) Issues() []schemas.LifecycleIssue {
	out := make([]schemas.LifecycleIssue, len(c.issues))
	copy(out, c.issues)
	return out
}

// Status is the aggregate severity of all recorded issues.
func (c Context) Status() schemas.LibraryStatus {
	return schemas.AggregateStatus(c.issues)
}

func (c Context) IsTerminal() bool { return c.state.IsTerminal() }

// withIssues returns a copy of c with issues appended on a fresh backing array.
func (c Context) withIssues(issues ...schemas.LifecycleIssue) Context {
	if len(issues) == 0 {
		return c
	}
	merged := make([]schemas.LifecycleIssue, 0, len(c.issues)+len(issues))
	merged = append(merged, c.issues...)
	merged = append(merged, issues...)
	c.issues = merged
	return c
}

// Reject records an UNUSABLE issue raised from outside the provenance (for
// example a cross-library name collision) and ends the lifecycle. The issue's
// severity is forced to UNUSABLE.
func (c Context) Reject(issue schemas.LifecycleIssue) Context {
	if c.IsTerminal() {
		panic("lifecycle: reject on terminal context in state " + c.state.String())
	}
	issue.Severity = schemas.StatusUnusable
	stage := c.state.stage()
	next := c.withIssues(issue)
	next.env.Metrics.ObserveIssue(stage, issue.Severity.String())
	return next.moveTo(StateUnusable)
}

// moveTo returns a copy in state s, recording the transition.
func (c Context) moveTo(s State) Context {
	c.env.Metrics.ObserveTransition(c.state.String(), s.String())
	c.state = s
	return c
}
