// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/directory"
	"github.com/xkilldash9x/nodelib/internal/engine"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/mocks"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/registry"
)

const acmeManifest = `{
  "name": "Acme Nodes",
  "library_schema_version": "0.1.0",
  "metadata": {
    "author": "Acme",
    "description": "Image helpers.",
    "library_version": "1.4.0",
    "engine_version": "0.1.0",
    "tags": ["image"]
  },
  "categories": [
    {"Image": {"title": "Image", "description": "Image nodes."}}
  ],
  "nodes": [
    {
      "class_name": "ResizeImage",
      "file_path": "nodes/resize.py",
      "metadata": {"category": "Image", "description": "Resizes an image.", "display_name": "Resize"}
    }
  ]
}`

var fixedTime = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

// harness wires a real engine, directory and registry behind a mocked config.
type harness struct {
	orch     *Orchestrator
	registry *registry.Registry
	logs     *observer.ObservedLogs
	cfg      *mocks.MockConfig
}

func newHarness(t *testing.T, lib config.LibraryConfig, opts ...Option) *harness {
	t.Helper()
	cfg := new(mocks.MockConfig)
	cfg.On("Library").Return(lib)
	cfg.On("Engine").Return(config.EngineConfig{Concurrency: 2, InstallWorkers: 1, StageTimeout: 10 * time.Second})
	cfg.On("Metrics").Return(config.MetricsConfig{})

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	reg := registry.New()
	env := &lifecycle.Env{Logger: zap.NewNop(), Registrar: reg, EngineVersion: "0.1.0"}
	eng, err := engine.New(cfg, env, zap.NewNop())
	require.NoError(t, err)

	orch, err := New(cfg, logger, directory.New(nil), env, eng, append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)...)
	require.NoError(t, err)
	orch.newRunID = func() string { return "run-1" }
	return &harness{orch: orch, registry: reg, logs: logs, cfg: cfg}
}

func writeManifest(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "nodes_library.json")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(acmeManifest), 0o644))
	return path
}

func keys(entries []lifecycle.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Provenance.Key()
	}
	return out
}

// -- Test Cases --

func TestNew_NilDependencies(t *testing.T) {
	_, err := New(nil, zap.NewNop(), directory.New(nil), &lifecycle.Env{}, nil)
	assert.EqualError(t, err, "cannot initialize orchestrator with nil dependencies")
}

func TestPopulate(t *testing.T) {
	root := t.TempDir()
	manifest := writeManifest(t, filepath.Join(root, "search", "acme"))
	sandbox := filepath.Join(root, "sandbox")
	require.NoError(t, os.MkdirAll(sandbox, 0o755))

	h := newHarness(t, config.LibraryConfig{
		SearchPaths: []string{filepath.Join(root, "search")},
		Curated:     []string{"pkg:curated-a", "pkg:curated-b", "bogus:thing"},
		User:        []string{"pkg:user-a"},
		Activate:    []string{"pkg:curated-b", "pkg:unknown"},
		SandboxDir:  sandbox,
	})

	err := h.orch.Populate(context.Background(), []string{"pkg:arg-a"})
	require.NoError(t, err)

	dir := h.orch.Directory()
	assert.Equal(t, 6, dir.Len())
	assert.Equal(t, []string{
		"file:" + manifest,
		"package:curated-b",
		"package:user-a",
		"sandbox:" + sandbox,
		"package:arg-a",
	}, keys(dir.ActiveCandidates()))

	warnings := h.logs.FilterLevelExact(zapcore.WarnLevel)
	assert.Equal(t, 1, warnings.FilterMessage("Skipping invalid library specifier.").Len())
	assert.Equal(t, 1, warnings.FilterMessage("Cannot activate unknown library candidate.").Len())
}

func TestPopulate_BadArgument(t *testing.T) {
	h := newHarness(t, config.LibraryConfig{})

	err := h.orch.Populate(context.Background(), []string{"pkg:ok", "nope:bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provenance specifier")
	assert.Equal(t, 1, h.orch.Directory().Len(), "valid arguments are still added")
}

func TestRun_EndToEnd(t *testing.T) {
	manifest := writeManifest(t, t.TempDir())
	store := new(mocks.MockStore)
	metrics := observability.NewMetrics()
	h := newHarness(t, config.LibraryConfig{}, WithStore(store), WithMetrics(metrics))

	store.On("SaveReports", mock.Anything, mock.MatchedBy(func(reports []schemas.LibraryReport) bool {
		return len(reports) == 2 && reports[0].RunID == "run-1"
	})).Return(nil).Once()

	require.NoError(t, h.orch.Populate(context.Background(), []string{manifest, "pkg:acme-extra==1.0"}))
	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Reports, 2)
	assert.Equal(t, "run-1", summary.RunID)

	loaded := summary.Reports[0]
	assert.Equal(t, "file:"+manifest, loaded.ProvenanceKey)
	assert.Equal(t, "local_file", loaded.Kind)
	assert.Equal(t, "Acme Nodes", loaded.LibraryName)
	assert.Equal(t, "Loaded", loaded.FinalState)
	assert.Equal(t, schemas.StatusUsable, loaded.Status)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, fixedTime, loaded.RecordedAt)

	skipped := summary.Reports[1]
	assert.Equal(t, "Unusable", skipped.FinalState)
	assert.Equal(t, schemas.StatusUnusable, skipped.Status)
	assert.False(t, skipped.Enabled)

	assert.Equal(t, 1, summary.Count(schemas.StatusUsable))
	assert.Equal(t, 1, summary.Count(schemas.StatusUnusable))

	_, ok := h.registry.Library("Acme Nodes")
	assert.True(t, ok, "the loaded library must be registered")

	banner := h.logs.FilterMessage("Library skipped.").All()
	require.Len(t, banner, 1)
	assert.Equal(t, "package:acme-extra==1.0", banner[0].ContextMap()["provenance"])

	store.AssertExpectations(t)
}

func TestRun_StoreFailureIsLogged(t *testing.T) {
	manifest := writeManifest(t, t.TempDir())
	store := new(mocks.MockStore)
	store.On("SaveReports", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	h := newHarness(t, config.LibraryConfig{}, WithStore(store))

	require.NoError(t, h.orch.Populate(context.Background(), []string{manifest}))
	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Reports, 1)
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to persist library reports").Len())
}

func TestRun_FlawedBanner(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir)
	h := newHarness(t, config.LibraryConfig{})
	// A newer host major version makes the library FLAWED but still loadable.
	h.orch.env.EngineVersion = "1.0.0"

	require.NoError(t, h.orch.Populate(context.Background(), []string{manifest}))
	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Reports, 1)
	assert.Equal(t, schemas.StatusFlawed, summary.Reports[0].Status)
	assert.Equal(t, "Loaded", summary.Reports[0].FinalState)

	banner := h.logs.FilterMessage("Library loaded with warnings.").All()
	require.Len(t, banner, 1)
	assert.NotEmpty(t, banner[0].ContextMap()["warnings"])
}

func TestInspect(t *testing.T) {
	manifest := writeManifest(t, t.TempDir())
	h := newHarness(t, config.LibraryConfig{})

	lc, err := h.orch.Inspect(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateEvaluated, lc.State())
	assert.Equal(t, "Acme Nodes", lc.LibraryName())
	assert.Equal(t, 0, h.registry.Len(), "inspection must not register anything")

	_, err = h.orch.Inspect(context.Background(), "ftp:nowhere")
	assert.Error(t, err)
}

func TestBuildReport_NameOverride(t *testing.T) {
	manifest := writeManifest(t, t.TempDir())
	h := newHarness(t, config.LibraryConfig{})
	h.orch.env.NameOverrides = map[string]string{"Acme Nodes": "Acme (fork)"}

	require.NoError(t, h.orch.Populate(context.Background(), []string{manifest}))
	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Acme (fork)", summary.Reports[0].LibraryName)
	_, ok := h.registry.Library("Acme (fork)")
	assert.True(t, ok)
}
