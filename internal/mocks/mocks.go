// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/process"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Library() config.LibraryConfig {
	args := m.Called()
	return args.Get(0).(config.LibraryConfig)
}

func (m *MockConfig) Engine() config.EngineConfig {
	args := m.Called()
	return args.Get(0).(config.EngineConfig)
}

func (m *MockConfig) GitHub() config.GitHubConfig {
	args := m.Called()
	return args.Get(0).(config.GitHubConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Metrics() config.MetricsConfig {
	args := m.Called()
	return args.Get(0).(config.MetricsConfig)
}

// --- Setters ---

func (m *MockConfig) SetEngineConcurrency(n int) { m.Called(n) }
func (m *MockConfig) SetInstallWorkers(n int)    { m.Called(n) }
func (m *MockConfig) SetSandboxDir(dir string)   { m.Called(dir) }

// -- Process Runner Mock --

// MockRunner mocks process.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*process.Result), args.Error(1)
}

// -- Provisioner Mock --

// MockProvisioner mocks lifecycle.Provisioner.
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) EnvPath(libraryName, source string) string {
	return m.Called(libraryName, source).String(0)
}

func (m *MockProvisioner) Ensure(ctx context.Context, envPath string) error {
	return m.Called(ctx, envPath).Error(0)
}

func (m *MockProvisioner) Writable(envPath string) bool {
	return m.Called(envPath).Bool(0)
}

func (m *MockProvisioner) CheckDiskSpace(envPath string) error {
	return m.Called(envPath).Error(0)
}

func (m *MockProvisioner) InstallDependencies(ctx context.Context, envPath string, deps, flags []string) error {
	return m.Called(ctx, envPath, deps, flags).Error(0)
}

// -- Registrar Mock --

// MockRegistrar mocks lifecycle.Registrar.
type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterLibrary(source, name string, schema *schemas.LibrarySchema) []schemas.LifecycleIssue {
	args := m.Called(source, name, schema)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]schemas.LifecycleIssue)
}

// -- Repository Fetcher Mock --

// MockFetcher mocks lifecycle.RepositoryFetcher.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, owner, repo, ref string) (string, error) {
	args := m.Called(ctx, owner, repo, ref)
	return args.String(0), args.Error(1)
}

// -- Provenance Mock --

// MockProvenance mocks lifecycle.Provenance. Key, Kind and String are plain
// fields so tests only need expectations for the lifecycle hooks.
type MockProvenance struct {
	mock.Mock
	ID      string
	Variant lifecycle.Kind
}

func (m *MockProvenance) Key() string { return m.ID }

func (m *MockProvenance) Kind() lifecycle.Kind {
	if m.Variant == "" {
		return lifecycle.KindLocalFile
	}
	return m.Variant
}

func (m *MockProvenance) String() string                      { return "mock " + m.ID }
func (m *MockProvenance) CreateLibraryEntry() lifecycle.Entry { return lifecycle.NewEntry(m) }

func (m *MockProvenance) Inspect(ctx context.Context, lc lifecycle.Context) schemas.InspectionResult {
	return m.Called(ctx, lc).Get(0).(schemas.InspectionResult)
}

func (m *MockProvenance) Evaluate(ctx context.Context, lc lifecycle.Context) schemas.EvaluationResult {
	return m.Called(ctx, lc).Get(0).(schemas.EvaluationResult)
}

func (m *MockProvenance) Install(ctx context.Context, lc lifecycle.Context) schemas.InstallationResult {
	return m.Called(ctx, lc).Get(0).(schemas.InstallationResult)
}

func (m *MockProvenance) LoadLibrary(ctx context.Context, lc lifecycle.Context) schemas.LibraryLoadedResult {
	return m.Called(ctx, lc).Get(0).(schemas.LibraryLoadedResult)
}

// -- Store Mock --

// MockStore mocks the report store used by the orchestrator.
type MockStore struct {
	mock.Mock
}

// SaveReports provides a mock function for persisting lifecycle reports.
func (m *MockStore) SaveReports(ctx context.Context, reports []schemas.LibraryReport) error {
	return m.Called(ctx, reports).Error(0)
}

// GetReportsByRunID provides a mock function for retrieving a run's reports.
func (m *MockStore) GetReportsByRunID(ctx context.Context, runID string) ([]schemas.LibraryReport, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.LibraryReport), args.Error(1)
}

func (m *MockStore) Close() { m.Called() }
