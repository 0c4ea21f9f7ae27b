// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Library() LibraryConfig
	Engine() EngineConfig
	GitHub() GitHubConfig
	Database() DatabaseConfig
	Metrics() MetricsConfig

	// Setters used by CLI flag overrides.
	SetEngineConcurrency(int)
	SetInstallWorkers(int)
	SetSandboxDir(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LibraryCfg  LibraryConfig  `mapstructure:"library" yaml:"library"`
	EngineCfg   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	GitHubCfg   GitHubConfig   `mapstructure:"github" yaml:"github"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	MetricsCfg  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Library() LibraryConfig   { return c.LibraryCfg }
func (c *Config) Engine() EngineConfig     { return c.EngineCfg }
func (c *Config) GitHub() GitHubConfig     { return c.GitHubCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) Metrics() MetricsConfig   { return c.MetricsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEngineConcurrency(n int) { c.EngineCfg.Concurrency = n }
func (c *Config) SetInstallWorkers(n int)    { c.EngineCfg.InstallWorkers = n }
func (c *Config) SetSandboxDir(dir string)   { c.LibraryCfg.SandboxDir = dir }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LibraryConfig controls where libraries come from and how they are provisioned.
type LibraryConfig struct {
	// DataDir is the base directory for isolated environments and GitHub clones.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// EngineVersion is the version of the host engine libraries are evaluated against.
	EngineVersion     string   `mapstructure:"engine_version" yaml:"engine_version"`
	MinFreeDiskBytes  uint64   `mapstructure:"min_free_disk_bytes" yaml:"min_free_disk_bytes"`
	Installer         string   `mapstructure:"installer" yaml:"installer"`
	PythonVersion     string   `mapstructure:"python_version" yaml:"python_version"`
	ExtraInstallFlags []string `mapstructure:"extra_install_flags" yaml:"extra_install_flags"`

	// Candidate sources. Curated entries are discovered inactive, user entries active.
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths"`
	Curated     []string `mapstructure:"curated" yaml:"curated"`
	User        []string `mapstructure:"user" yaml:"user"`
	Activate    []string `mapstructure:"activate" yaml:"activate"`

	SandboxDir  string `mapstructure:"sandbox_dir" yaml:"sandbox_dir"`
	SandboxName string `mapstructure:"sandbox_name" yaml:"sandbox_name"`

	NameOverrides map[string]string `mapstructure:"name_overrides" yaml:"name_overrides"`
	Disabled      []string          `mapstructure:"disabled" yaml:"disabled"`
}

// EngineConfig configures how many libraries are processed at once.
type EngineConfig struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	InstallWorkers int           `mapstructure:"install_workers" yaml:"install_workers"`
	StageTimeout   time.Duration `mapstructure:"stage_timeout" yaml:"stage_timeout"`
}

// GitHubConfig defines the configuration for GitHub-hosted libraries.
type GitHubConfig struct {
	Token        string  `mapstructure:"token" yaml:"-"`
	APIRateLimit float64 `mapstructure:"api_rate_limit" yaml:"api_rate_limit"`
	CloneDepth   int     `mapstructure:"clone_depth" yaml:"clone_depth"`
}

// DatabaseConfig holds the database connection details. An empty URL disables
// report persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// MetricsConfig controls Prometheus metric export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "nodelib")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Library --
	v.SetDefault("library.data_dir", filepath.Join(xdg.DataHome, "nodelib"))
	v.SetDefault("library.engine_version", "0.1.0")
	v.SetDefault("library.min_free_disk_bytes", uint64(1<<30))
	v.SetDefault("library.installer", "uv")
	v.SetDefault("library.python_version", "3.12")
	v.SetDefault("library.sandbox_name", "Sandbox Library")

	// -- Engine --
	v.SetDefault("engine.concurrency", 8)
	v.SetDefault("engine.install_workers", 4)
	v.SetDefault("engine.stage_timeout", "10m")

	// -- GitHub --
	v.SetDefault("github.api_rate_limit", 1.0)
	v.SetDefault("github.clone_depth", 1)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("github.token", "NODELIB_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("database.url", "NODELIB_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.GitHubCfg.Token == "" {
		cfg.GitHubCfg.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path-valued setting.
func (c *Config) expandPaths() error {
	var err error
	expand := func(p string) string {
		if err != nil || p == "" {
			return p
		}
		var out string
		out, err = homedir.Expand(p)
		return out
	}

	c.LibraryCfg.DataDir = expand(c.LibraryCfg.DataDir)
	c.LibraryCfg.SandboxDir = expand(c.LibraryCfg.SandboxDir)
	c.LoggerCfg.LogFile = expand(c.LoggerCfg.LogFile)
	c.MetricsCfg.Textfile = expand(c.MetricsCfg.Textfile)
	for i, p := range c.LibraryCfg.SearchPaths {
		c.LibraryCfg.SearchPaths[i] = expand(p)
	}
	if err != nil {
		return fmt.Errorf("failed to expand home directory in configured path: %w", err)
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.Concurrency <= 0 {
		return errors.New("engine.concurrency must be a positive integer")
	}
	if c.EngineCfg.InstallWorkers <= 0 {
		return errors.New("engine.install_workers must be a positive integer")
	}
	if err := c.LibraryCfg.Validate(); err != nil {
		return fmt.Errorf("library configuration invalid: %w", err)
	}
	if c.GitHubCfg.APIRateLimit < 0 {
		return errors.New("github.api_rate_limit cannot be negative")
	}
	return nil
}

// Validate checks the library settings.
func (l *LibraryConfig) Validate() error {
	if l.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if _, err := semver.NewVersion(l.EngineVersion); err != nil {
		return fmt.Errorf("engine_version %q is not a valid semantic version: %w", l.EngineVersion, err)
	}
	if l.Installer == "" {
		return errors.New("installer is required")
	}
	return nil
}
