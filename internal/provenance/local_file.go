// File: internal/provenance/local_file.go
package provenance

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// LocalFile is a library whose manifest is a JSON file on disk.
type LocalFile struct {
	path string
}

// NewLocalFile references the manifest at path. The path is resolved so that
// two spellings of the same file, symlinks included, share one identity.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: canonicalPath(path)}
}

// canonicalPath returns the absolute path with symlinks resolved. A path that
// does not exist yet keeps its missing tail on top of its resolved parent.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs
	}
	return filepath.Join(canonicalPath(parent), filepath.Base(abs))
}

func (l *LocalFile) Path() string                        { return l.path }
func (l *LocalFile) Key() string                         { return "file:" + l.path }
func (l *LocalFile) Kind() lifecycle.Kind                { return lifecycle.KindLocalFile }
func (l *LocalFile) String() string                      { return "local file " + l.path }
func (l *LocalFile) CreateLibraryEntry() lifecycle.Entry { return lifecycle.NewEntry(l) }

func (l *LocalFile) Inspect(_ context.Context, _ lifecycle.Context) schemas.InspectionResult {
	return inspectManifest(l.path)
}

func (l *LocalFile) Evaluate(_ context.Context, lc lifecycle.Context) schemas.EvaluationResult {
	return schemas.EvaluationResult{Issues: evaluateSchema(lc.Schema(), lc.Env().EngineVersion)}
}

func (l *LocalFile) Install(ctx context.Context, lc lifecycle.Context) schemas.InstallationResult {
	return installDependencies(ctx, lc, manifestDir(lc.SourcePath()))
}

func (l *LocalFile) LoadLibrary(_ context.Context, lc lifecycle.Context) schemas.LibraryLoadedResult {
	return loadLibrary(lc)
}

// inspectManifest reads and validates a manifest file.
func inspectManifest(path string) schemas.InspectionResult {
	result := schemas.InspectionResult{SourcePath: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Issues = []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "library manifest %s does not exist", path),
		}
		return result
	case err != nil:
		result.Issues = []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "failed to read library manifest %s: %v", path, err),
		}
		return result
	}

	result.Schema, result.Issues = DecodeManifest(data)
	return result
}
