// File: internal/provenance/helpers_test.go
package provenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

const validManifest = `{
  "name": "Acme Nodes",
  "library_schema_version": "0.1.0",
  "metadata": {
    "author": "Acme",
    "description": "Image helpers.",
    "library_version": "1.4.0",
    "engine_version": "0.1.0",
    "tags": ["image", "utility"]
  },
  "categories": [
    {"Image": {"title": "Image", "description": "Image nodes.", "color": "border-blue-500"}}
  ],
  "nodes": [
    {
      "class_name": "ResizeImage",
      "file_path": "nodes/resize.py",
      "metadata": {"category": "Image", "description": "Resizes an image.", "display_name": "Resize"}
    }
  ]
}`

const manifestWithDeps = `{
  "name": "Heavy Nodes",
  "library_schema_version": "0.1.0",
  "metadata": {
    "author": "Acme",
    "description": "Needs packages.",
    "library_version": "0.2.0",
    "engine_version": "0.1.0",
    "tags": [],
    "dependencies": {
      "pip_dependencies": ["requests==2.32.0", "pillow"],
      "pip_install_flags": ["--prerelease=allow"]
    }
  },
  "categories": [],
  "nodes": []
}`

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run drives p through its whole lifecycle.
func run(t *testing.T, p lifecycle.Provenance, env *lifecycle.Env) lifecycle.Context {
	t.Helper()
	return lifecycle.NewFSM(p, env).RunUntil(context.Background(), lifecycle.StateLoaded)
}
