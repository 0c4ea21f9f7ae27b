// internal/discovery/discovery_test.go
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/provenance"
)

// -- Test Helpers --

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

// -- Parse Tests --

func TestParse_GitHub(t *testing.T) {
	tests := []struct {
		specifier string
		owner     string
		repo      string
		ref       string
		manifest  string
	}{
		{"github:acme/nodes", "acme", "nodes", "", provenance.ManifestFileName},
		{"github:acme/nodes@v1.2.0", "acme", "nodes", "v1.2.0", provenance.ManifestFileName},
		{"github:acme/nodes.git@main", "acme", "nodes", "main", provenance.ManifestFileName},
		{"github:acme/nodes@main//libs/image/nodes_library.json", "acme", "nodes", "main", "libs/image/nodes_library.json"},
		{"github:acme/nodes//sub/manifest.json", "acme", "nodes", "", "sub/manifest.json"},
	}
	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			p, err := Parse(tt.specifier)
			require.NoError(t, err)
			gh, ok := p.(*provenance.GitHub)
			require.True(t, ok, "expected a GitHub provenance, got %T", p)
			assert.Equal(t, tt.owner, gh.Owner())
			assert.Equal(t, tt.repo, gh.Repo())
			assert.Equal(t, tt.ref, gh.Ref())
			assert.Equal(t, tt.manifest, gh.ManifestPath())
			assert.Equal(t, lifecycle.KindGitHub, p.Kind())
		})
	}
}

func TestParse_GitHubInvalid(t *testing.T) {
	for _, specifier := range []string{
		"github:",
		"github:acme",
		"github:acme/",
		"github:acme/nodes/extra",
		"github:acme/nodes@",
		"github:acme/nodes//",
		"github:ac me/nodes",
	} {
		_, err := Parse(specifier)
		assert.Error(t, err, specifier)
	}
}

func TestParse_Package(t *testing.T) {
	for _, specifier := range []string{"pkg:acme-nodes==1.0", "package:acme-nodes==1.0", "pkg: acme-nodes==1.0"} {
		p, err := Parse(specifier)
		require.NoError(t, err, specifier)
		assert.Equal(t, "package:acme-nodes==1.0", p.Key())
		assert.Equal(t, lifecycle.KindPackage, p.Kind())
	}

	_, err := Parse("pkg:")
	assert.Error(t, err)
}

func TestParse_Sandbox(t *testing.T) {
	dir := t.TempDir()
	p, err := Parse("sandbox:" + dir)
	require.NoError(t, err)
	assert.Equal(t, "sandbox:"+dir, p.Key())

	home, err := homedir.Dir()
	require.NoError(t, err)
	p, err = Parse("sandbox:~/nodes")
	require.NoError(t, err)
	assert.Equal(t, "sandbox:"+filepath.Join(home, "nodes"), p.Key())

	_, err = Parse("sandbox:")
	assert.Error(t, err)
}

func TestParse_Paths(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "lib", provenance.ManifestFileName)
	touch(t, manifest)

	t.Run("manifest file", func(t *testing.T) {
		p, err := Parse(manifest)
		require.NoError(t, err)
		assert.Equal(t, "file:"+manifest, p.Key())
	})

	t.Run("file scheme", func(t *testing.T) {
		p, err := Parse("file:" + manifest)
		require.NoError(t, err)
		assert.Equal(t, "file:"+manifest, p.Key())
	})

	t.Run("directory containing a manifest", func(t *testing.T) {
		p, err := Parse(filepath.Join(dir, "lib"))
		require.NoError(t, err)
		assert.Equal(t, "file:"+manifest, p.Key())
	})

	t.Run("missing json file is still a manifest", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.json")
		p, err := Parse(missing)
		require.NoError(t, err)
		assert.Equal(t, "file:"+missing, p.Key())
	})

	t.Run("directory without a manifest", func(t *testing.T) {
		_, err := Parse(dir)
		assert.ErrorIs(t, err, ErrUnknownScheme)
	})

	t.Run("non-json file", func(t *testing.T) {
		other := filepath.Join(dir, "README.md")
		touch(t, other)
		_, err := Parse(other)
		assert.ErrorIs(t, err, ErrUnknownScheme)
	})
}

func TestParse_UnknownScheme(t *testing.T) {
	for _, specifier := range []string{"https://example.com/nodes", "git:acme/nodes", "s3:bucket/key"} {
		_, err := Parse(specifier)
		assert.ErrorIs(t, err, ErrUnknownScheme, specifier)
	}

	_, err := Parse("   ")
	assert.Error(t, err)
}

// -- Scan Tests --

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b", provenance.ManifestFileName))
	touch(t, filepath.Join(root, "a", provenance.ManifestFileName))
	touch(t, filepath.Join(root, "a", "deep", "deeper", provenance.ManifestFileName))
	touch(t, filepath.Join(root, ".hidden", provenance.ManifestFileName))
	touch(t, filepath.Join(root, "a", "other.json"))

	t.Run("finds every manifest sorted by path", func(t *testing.T) {
		found, err := Scan(context.Background(), []string{root}, 0)
		require.NoError(t, err)

		paths := make([]string, len(found))
		for i, f := range found {
			paths[i] = f.Path()
		}
		assert.Equal(t, []string{
			filepath.Join(root, "a", "deep", "deeper", provenance.ManifestFileName),
			filepath.Join(root, "a", provenance.ManifestFileName),
			filepath.Join(root, "b", provenance.ManifestFileName),
		}, paths)
	})

	t.Run("respects max depth", func(t *testing.T) {
		found, err := Scan(context.Background(), []string{root}, 1)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("deduplicates overlapping roots and skips missing ones", func(t *testing.T) {
		found, err := Scan(context.Background(), []string{root, filepath.Join(root, "a"), filepath.Join(root, "nope")}, 0)
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Scan(ctx, []string{root}, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
