// File: internal/environment/provisioner.go
package environment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/internal/config"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/process"
)

// ErrInsufficientDiskSpace is returned by CheckDiskSpace when the volume holding an
// environment has less free space than the configured minimum.
var ErrInsufficientDiskSpace = errors.New("insufficient disk space")

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// DiskFreeFunc reports the free bytes on the volume containing path.
type DiskFreeFunc func(path string) (uint64, error)

// Provisioner creates per-library isolated Python environments and installs
// dependencies into them with an external installer (uv by default).
type Provisioner struct {
	baseDir       string
	minFreeBytes  uint64
	installer     string
	pythonVersion string
	extraFlags    []string
	runner        process.Runner
	diskFree      DiskFreeFunc
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithDiskFree replaces the gopsutil-backed free-space lookup.
func WithDiskFree(fn DiskFreeFunc) Option {
	return func(p *Provisioner) { p.diskFree = fn }
}

// WithMetrics records installer durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Provisioner) { p.metrics = m }
}

// NewProvisioner builds a provisioner rooted at cfg.DataDir.
func NewProvisioner(cfg config.LibraryConfig, runner process.Runner, logger *zap.Logger, opts ...Option) (*Provisioner, error) {
	if runner == nil {
		return nil, errors.New("process runner cannot be nil")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data directory cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provisioner{
		baseDir:       cfg.DataDir,
		minFreeBytes:  cfg.MinFreeDiskBytes,
		installer:     cfg.Installer,
		pythonVersion: cfg.PythonVersion,
		extraFlags:    cfg.ExtraInstallFlags,
		runner:        runner,
		diskFree:      volumeFree,
		logger:        logger.With(zap.String("component", "environment")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnvPath returns a stable environment directory for a library. The same name and
// source always map to the same path; different sources never collide.
func (p *Provisioner) EnvPath(libraryName, source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	sum := sha256.Sum256([]byte(abs))

	name := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(libraryName), "_"), "_.")
	if name == "" {
		name = "library"
	}
	return filepath.Join(p.baseDir, "venvs", fmt.Sprintf("%s-%s", name, hex.EncodeToString(sum[:])[:12]))
}

// PythonPath is the interpreter inside an environment.
func PythonPath(envPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envPath, "Scripts", "python.exe")
	}
	return filepath.Join(envPath, "bin", "python")
}

// Ensure creates the environment if its interpreter does not exist yet.
func (p *Provisioner) Ensure(ctx context.Context, envPath string) error {
	if _, err := os.Stat(PythonPath(envPath)); err == nil {
		p.logger.Debug("Reusing existing environment.", zap.String("env", envPath))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(envPath), 0o755); err != nil {
		return fmt.Errorf("failed to create environment parent directory: %w", err)
	}

	args := []string{"venv"}
	if p.pythonVersion != "" {
		args = append(args, "--python", p.pythonVersion)
	}
	args = append(args, envPath)

	p.logger.Info("Creating isolated environment.", zap.String("env", envPath))
	if _, err := p.runner.Run(ctx, process.Command{Name: p.installer, Args: args}); err != nil {
		return fmt.Errorf("failed to create environment at %s: %w", envPath, err)
	}
	return nil
}

// Writable checks the environment directory by creating and removing a file.
func (p *Provisioner) Writable(envPath string) bool {
	f, err := os.CreateTemp(envPath, ".nodelib-write-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// CheckDiskSpace fails with ErrInsufficientDiskSpace when the volume holding
// envPath is below the configured minimum. A zero minimum disables the check.
func (p *Provisioner) CheckDiskSpace(envPath string) error {
	if p.minFreeBytes == 0 {
		return nil
	}
	free, err := p.diskFree(existingAncestor(envPath))
	if err != nil {
		return fmt.Errorf("failed to query free disk space for %s: %w", envPath, err)
	}
	if free < p.minFreeBytes {
		return fmt.Errorf("%w: %s free at %s, %s required",
			ErrInsufficientDiskSpace, humanBytes(free), envPath, humanBytes(p.minFreeBytes))
	}
	return nil
}

// InstallDependencies installs deps into the environment. Declared flags come
// first, then the configured extra flags. Failures are returned as
// *process.ExitError when the installer ran and exited non-zero.
func (p *Provisioner) InstallDependencies(ctx context.Context, envPath string, deps, flags []string) error {
	if len(deps) == 0 {
		return nil
	}
	args := []string{"pip", "install", "--python", PythonPath(envPath)}
	args = append(args, deps...)
	args = append(args, flags...)
	args = append(args, p.extraFlags...)

	p.logger.Info("Installing dependencies.", zap.String("env", envPath), zap.Strings("packages", deps))
	start := time.Now()
	_, err := p.runner.Run(ctx, process.Command{Name: p.installer, Args: args})
	p.metrics.ObserveInstall(time.Since(start))
	if err != nil {
		return err
	}
	return nil
}

func volumeFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// existingAncestor walks up until it finds a path that exists, since the
// environment itself may not have been created yet.
func existingAncestor(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
