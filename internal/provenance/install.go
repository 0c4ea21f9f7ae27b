// File: internal/provenance/install.go
package provenance

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// installDependencies provisions the isolated environment for a file-backed
// library. Environment and disk failures are UNUSABLE and stop before the
// installer runs; an installer failure is FLAWED.
func installDependencies(ctx context.Context, lc lifecycle.Context, installationPath string) schemas.InstallationResult {
	result := schemas.InstallationResult{InstallationPath: installationPath}
	schema := lc.Schema()
	if schema.Metadata == nil || !schema.Metadata.Dependencies.HasPackages() {
		return result
	}

	env := lc.Env()
	logger := env.Log().With(zap.String("component", "install"), zap.String("library", schema.Name))
	if env.Provisioner == nil {
		result.Issues = append(result.Issues, schemas.NewIssue(schemas.StatusUnusable,
			"library %q declares dependencies but no environment provisioner is configured", schema.Name))
		return result
	}

	envPath := env.Provisioner.EnvPath(schema.Name, lc.SourcePath())
	result.VenvPath = envPath

	if err := env.Provisioner.Ensure(ctx, envPath); err != nil {
		result.Issues = append(result.Issues, schemas.NewIssue(schemas.StatusUnusable,
			"failed to create isolated environment for %q: %v", schema.Name, err))
		return result
	}

	if !env.Provisioner.Writable(envPath) {
		logger.Debug("Environment is not writable; skipping dependency installation.", zap.String("env", envPath))
		return result
	}

	// Checked per library immediately before installing; concurrent installs may
	// have consumed space since any earlier check.
	if err := env.Provisioner.CheckDiskSpace(envPath); err != nil {
		result.Issues = append(result.Issues, schemas.NewIssue(schemas.StatusUnusable,
			"cannot install dependencies for %q: %v", schema.Name, err))
		return result
	}

	deps := schema.Metadata.Dependencies
	if err := env.Provisioner.InstallDependencies(ctx, envPath, deps.PipDependencies, deps.PipInstallFlags); err != nil {
		logger.Warn("Dependency installation failed.", zap.Error(err))
		result.Issues = append(result.Issues, schemas.NewIssue(schemas.StatusFlawed,
			"dependency installation failed for %q: %v", schema.Name, err))
		return result
	}

	logger.Debug("Dependencies installed.", zap.String("env", envPath), zap.Int("packages", len(deps.PipDependencies)))
	return result
}

// manifestDir returns the directory holding a manifest file, or path itself when
// it is a directory.
func manifestDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
