// File: internal/provenance/sandbox.go
package provenance

import (
	"context"
	"fmt"
	"os"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

const (
	// DefaultSandboxName is used when the environment does not name the sandbox.
	DefaultSandboxName = "Sandbox Library"
	sandboxCategory    = "Sandbox"
)

// Sandbox is a directory of node source files used in place. Its schema is
// synthesized by scanning the directory; nothing is installed.
type Sandbox struct {
	dir string
}

func NewSandbox(dir string) *Sandbox {
	return &Sandbox{dir: canonicalPath(dir)}
}

func (s *Sandbox) Dir() string                         { return s.dir }
func (s *Sandbox) Key() string                         { return "sandbox:" + s.dir }
func (s *Sandbox) Kind() lifecycle.Kind                { return lifecycle.KindSandbox }
func (s *Sandbox) String() string                      { return "sandbox " + s.dir }
func (s *Sandbox) CreateLibraryEntry() lifecycle.Entry { return lifecycle.NewEntry(s) }

func (s *Sandbox) Inspect(ctx context.Context, lc lifecycle.Context) schemas.InspectionResult {
	result := schemas.InspectionResult{SourcePath: s.dir}
	info, err := os.Stat(s.dir)
	switch {
	case err != nil:
		result.Issues = []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "sandbox directory %s is not accessible: %v", s.dir, err),
		}
		return result
	case !info.IsDir():
		result.Issues = []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "sandbox path %s is not a directory", s.dir),
		}
		return result
	}

	scanned, issues, err := ScanNodes(ctx, s.dir)
	if err != nil {
		result.Issues = []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "failed to scan sandbox %s: %v", s.dir, err),
		}
		return result
	}
	result.Issues = issues
	result.Schema = s.synthesize(lc.Env(), scanned)
	return result
}

// synthesize builds a complete schema for the scanned nodes. Metadata always
// targets the running engine so evaluation treats it as compatible.
func (s *Sandbox) synthesize(env *lifecycle.Env, scanned []ScannedNode) *schemas.LibrarySchema {
	name := env.SandboxName
	if name == "" {
		name = DefaultSandboxName
	}
	schema := &schemas.LibrarySchema{
		Name:                 name,
		LibrarySchemaVersion: schemas.LibrarySchemaVersion,
		Metadata: &schemas.LibraryMetadata{
			Author:         "Sandbox",
			Description:    fmt.Sprintf("Nodes loaded in place from %s.", s.dir),
			LibraryVersion: "0.0.0",
			EngineVersion:  env.EngineVersion,
			Tags:           []string{"sandbox"},
		},
		Categories: []schemas.CategoryDefinition{},
		Nodes:      []schemas.NodeDefinition{},
	}
	if len(scanned) == 0 {
		return schema
	}

	schema.Categories = append(schema.Categories, schemas.CategoryDefinition{
		Key:         sandboxCategory,
		Title:       sandboxCategory,
		Description: "Nodes from the sandbox directory.",
	})
	for _, n := range scanned {
		schema.Nodes = append(schema.Nodes, schemas.NodeDefinition{
			ClassName: n.ClassName,
			FilePath:  n.FilePath,
			Metadata: schemas.NodeMetadata{
				Category:    sandboxCategory,
				Description: n.Description,
				DisplayName: n.ClassName,
			},
		})
	}
	return schema
}

func (s *Sandbox) Evaluate(_ context.Context, lc lifecycle.Context) schemas.EvaluationResult {
	return schemas.EvaluationResult{Issues: evaluateSchema(lc.Schema(), lc.Env().EngineVersion)}
}

// Install is a no-op: the directory is used in place.
func (s *Sandbox) Install(context.Context, lifecycle.Context) schemas.InstallationResult {
	return schemas.InstallationResult{InstallationPath: s.dir}
}

func (s *Sandbox) LoadLibrary(_ context.Context, lc lifecycle.Context) schemas.LibraryLoadedResult {
	return loadLibrary(lc)
}
