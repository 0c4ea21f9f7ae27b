// File: internal/lifecycle/provenance.go
package lifecycle

import (
	"context"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// Kind identifies the concrete provenance variant.
type Kind string

const (
	KindLocalFile Kind = "local_file"
	KindGitHub    Kind = "github"
	KindPackage   Kind = "package"
	KindSandbox   Kind = "sandbox"
)

// Provenance is an immutable reference to where a library comes from. Two
// provenances with the same Key are the same library candidate.
//
// The hooks return issues for every expected failure mode and never panic on
// user-caused input. They receive the lifecycle Context by value and must not
// retain it after returning.
type Provenance interface {
	Key() string
	Kind() Kind
	String() string
	CreateLibraryEntry() Entry

	Inspect(ctx context.Context, lc Context) schemas.InspectionResult
	Evaluate(ctx context.Context, lc Context) schemas.EvaluationResult
	Install(ctx context.Context, lc Context) schemas.InstallationResult
	LoadLibrary(ctx context.Context, lc Context) schemas.LibraryLoadedResult
}

// Entry is a provenance's catalog record. The provenance is a back-reference.
type Entry struct {
	Provenance Provenance
	Active     bool
}

// NewEntry returns the default, inactive entry for p.
func NewEntry(p Provenance) Entry {
	return Entry{Provenance: p}
}
