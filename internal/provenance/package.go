// File: internal/provenance/package.go
package provenance

import (
	"context"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// Package is a library distributed through a package index, identified by its
// requirement specifier (for example "acme-nodes==1.2.3"). Its lifecycle is not
// supported yet; every stage reports a single UNUSABLE issue.
type Package struct {
	requirement string
}

func NewPackage(requirement string) *Package {
	return &Package{requirement: requirement}
}

func (p *Package) Requirement() string                 { return p.requirement }
func (p *Package) Key() string                         { return "package:" + p.requirement }
func (p *Package) Kind() lifecycle.Kind                { return lifecycle.KindPackage }
func (p *Package) String() string                      { return "package " + p.requirement }
func (p *Package) CreateLibraryEntry() lifecycle.Entry { return lifecycle.NewEntry(p) }

func (p *Package) unsupported(stage string) []schemas.LifecycleIssue {
	return []schemas.LifecycleIssue{
		schemas.NewIssue(schemas.StatusUnusable, "%s is not supported for package libraries (%s)", stage, p.requirement),
	}
}

func (p *Package) Inspect(context.Context, lifecycle.Context) schemas.InspectionResult {
	return schemas.InspectionResult{Issues: p.unsupported("inspection")}
}

func (p *Package) Evaluate(context.Context, lifecycle.Context) schemas.EvaluationResult {
	return schemas.EvaluationResult{Issues: p.unsupported("evaluation")}
}

func (p *Package) Install(context.Context, lifecycle.Context) schemas.InstallationResult {
	return schemas.InstallationResult{Issues: p.unsupported("installation")}
}

func (p *Package) LoadLibrary(context.Context, lifecycle.Context) schemas.LibraryLoadedResult {
	return schemas.LibraryLoadedResult{Issues: p.unsupported("loading")}
}
