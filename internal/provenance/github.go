// File: internal/provenance/github.go
package provenance

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// GitHub is a library hosted in a GitHub repository. An empty Ref means the
// repository's default branch.
type GitHub struct {
	owner    string
	repo     string
	ref      string
	manifest string
}

// NewGitHub references owner/repo at ref. manifestPath is relative to the
// repository root and defaults to the standard manifest name.
func NewGitHub(owner, repo, ref, manifestPath string) *GitHub {
	if manifestPath == "" {
		manifestPath = ManifestFileName
	}
	return &GitHub{owner: owner, repo: repo, ref: ref, manifest: filepath.ToSlash(filepath.Clean(manifestPath))}
}

func (g *GitHub) Owner() string        { return g.owner }
func (g *GitHub) Repo() string         { return g.repo }
func (g *GitHub) Ref() string          { return g.ref }
func (g *GitHub) ManifestPath() string { return g.manifest }

func (g *GitHub) Key() string {
	key := fmt.Sprintf("github:%s/%s@%s", g.owner, g.repo, g.ref)
	if g.manifest != ManifestFileName {
		key += "//" + g.manifest
	}
	return key
}

func (g *GitHub) Kind() lifecycle.Kind                { return lifecycle.KindGitHub }
func (g *GitHub) String() string                      { return "GitHub repository " + g.Key()[len("github:"):] }
func (g *GitHub) CreateLibraryEntry() lifecycle.Entry { return lifecycle.NewEntry(g) }

// Inspect fetches the repository and then inspects the manifest inside the
// checkout exactly like a local file.
func (g *GitHub) Inspect(ctx context.Context, lc lifecycle.Context) schemas.InspectionResult {
	env := lc.Env()
	if env.Fetcher == nil {
		return schemas.InspectionResult{Issues: []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "cannot fetch %s: no repository fetcher is configured", g),
		}}
	}

	dir, err := env.Fetcher.Fetch(ctx, g.owner, g.repo, g.ref)
	if err != nil {
		return schemas.InspectionResult{Issues: []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "failed to fetch %s: %v", g, err),
		}}
	}
	env.Log().Debug("Repository checked out.", zap.String("provenance", g.Key()), zap.String("dir", dir))
	return inspectManifest(filepath.Join(dir, filepath.FromSlash(g.manifest)))
}

func (g *GitHub) Evaluate(_ context.Context, lc lifecycle.Context) schemas.EvaluationResult {
	return schemas.EvaluationResult{Issues: evaluateSchema(lc.Schema(), lc.Env().EngineVersion)}
}

func (g *GitHub) Install(ctx context.Context, lc lifecycle.Context) schemas.InstallationResult {
	return installDependencies(ctx, lc, manifestDir(lc.SourcePath()))
}

func (g *GitHub) LoadLibrary(_ context.Context, lc lifecycle.Context) schemas.LibraryLoadedResult {
	return loadLibrary(lc)
}
