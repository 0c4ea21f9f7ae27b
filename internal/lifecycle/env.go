// File: internal/lifecycle/env.go
package lifecycle

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/observability"
)

// Provisioner manages per-library isolated dependency environments.
type Provisioner interface {
	EnvPath(libraryName, source string) string
	Ensure(ctx context.Context, envPath string) error
	Writable(envPath string) bool
	CheckDiskSpace(envPath string) error
	InstallDependencies(ctx context.Context, envPath string, deps, flags []string) error
}

// Registrar is the host registry that loaded libraries are registered into.
type Registrar interface {
	RegisterLibrary(source, name string, schema *schemas.LibrarySchema) []schemas.LifecycleIssue
}

// RepositoryFetcher materializes a remote repository at a ref and returns the
// local checkout directory.
type RepositoryFetcher interface {
	Fetch(ctx context.Context, owner, repo, ref string) (string, error)
}

// Env is the bundle of services the provenance hooks use. It is constructed once
// per run and shared read-only by every lifecycle.
type Env struct {
	Logger      *zap.Logger
	Provisioner Provisioner
	Registrar   Registrar
	Fetcher     RepositoryFetcher
	Metrics     *observability.Metrics

	// EngineVersion is the host engine version libraries are evaluated against.
	EngineVersion string
	// NameOverrides maps a library name to the name it should be registered under.
	// Keys are matched case-insensitively.
	NameOverrides map[string]string
	// Disabled lists library names that load with enabled=false.
	Disabled []string
	// SandboxName is the library name synthesized for sandbox directories.
	SandboxName string
}

// Log returns the configured logger or a no-op logger.
func (e *Env) Log() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// NameOverride returns the configured registration name for a library, if any.
func (e *Env) NameOverride(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	if override, ok := e.NameOverrides[name]; ok && override != "" {
		return override, true
	}
	// viper lower-cases map keys read from config files.
	if override, ok := e.NameOverrides[strings.ToLower(name)]; ok && override != "" {
		return override, true
	}
	return "", false
}

// EffectiveName is the name a library is registered under.
func (e *Env) EffectiveName(name string) string {
	if override, ok := e.NameOverride(name); ok {
		return override
	}
	return name
}

// IsDisabled reports whether the library was disabled by configuration.
func (e *Env) IsDisabled(name string) bool {
	if e == nil {
		return false
	}
	for _, d := range e.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}
