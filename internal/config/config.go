package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/rocjpeg-setup/internal/logger"
)

// Config holds the tunables of a setup run.
type Config struct {
	// RocmPath is the ROCm installation root that must exist before dependencies are installed.
	RocmPath string `yaml:"rocm_path"`
	// ManifestFile optionally replaces the embedded package manifest.
	ManifestFile string `yaml:"manifest_file,omitempty"`
	// ElevationTool is the privilege-escalation utility wrapping every package-manager call.
	ElevationTool string `yaml:"elevation_tool"`
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level"`
	// OutputLogLevel is the level at which package-manager output is logged.
	OutputLogLevel string `yaml:"output_log_level"`
	// CommandTimeout bounds a single package-manager invocation. Zero disables the bound.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// LockWaitTimeout is how long to wait for other package managers to exit. Zero disables the wait.
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout"`
	// LockPollInterval is the delay between two process table scans while waiting.
	LockPollInterval time.Duration `yaml:"lock_poll_interval"`
	// ContinueOnError keeps installing the remaining groups after a failed invocation.
	ContinueOnError bool `yaml:"continue_on_error"`
}

const (
	// DefaultConfigFilename is the default filename for setup settings.
	DefaultConfigFilename = "rocjpeg-setup.yaml"

	// DefaultRocmPath is the conventional ROCm installation root.
	DefaultRocmPath = "/opt/rocm"

	// RocmPathEnv overrides the ROCm path from flags and the config file.
	RocmPathEnv = "ROCM_PATH"

	// DefaultElevationTool is the privilege-escalation utility installed for root users.
	DefaultElevationTool = "sudo"

	// DefaultLogLevel is used when the config does not name one.
	DefaultLogLevel = "info"

	// DefaultCommandTimeout bounds a single package-manager invocation.
	DefaultCommandTimeout = 30 * time.Minute

	// DefaultLockWaitTimeout is how long to wait for a concurrently running package manager.
	DefaultLockWaitTimeout = 5 * time.Minute

	// DefaultLockPollInterval is the delay between two process table scans.
	DefaultLockPollInterval = 2 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRocmPathRequired is returned when the ROCm path is blank after defaults.
	errRocmPathRequired = errors.New("rocm path must be provided")
	// errNegativeDuration is returned when a duration setting is negative.
	errNegativeDuration = errors.New("duration must not be negative")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		RocmPath:         DefaultRocmPath,
		ElevationTool:    DefaultElevationTool,
		LogLevel:         DefaultLogLevel,
		OutputLogLevel:   DefaultLogLevel,
		CommandTimeout:   DefaultCommandTimeout,
		LockWaitTimeout:  DefaultLockWaitTimeout,
		LockPollInterval: DefaultLockPollInterval,
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location is not an error: defaults are returned instead.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// LookupEnvFunc reads an environment variable; os.LookupEnv in production.
type LookupEnvFunc func(key string) (string, bool)

// ApplyEnvironment lets ROCM_PATH override the configured ROCm path, as the
// environment wins over both flags and the config file. A nil lookup reads
// the process environment.
func ApplyEnvironment(cfg *Config, lookup LookupEnvFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if value, ok := lookup(RocmPathEnv); ok && value != "" {
		cfg.RocmPath = value
	}
}

// Validate checks the provided settings and fills blank fields with defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.RocmPath == "" {
		settings.RocmPath = DefaultRocmPath
	}

	if settings.ElevationTool == "" {
		settings.ElevationTool = DefaultElevationTool
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if settings.OutputLogLevel == "" {
		settings.OutputLogLevel = DefaultLogLevel
	}

	for _, level := range []string{settings.LogLevel, settings.OutputLogLevel} {
		if _, ok := logger.ParseLogLevel(level); !ok {
			return fmt.Errorf("%q: %w", level, errUnknownLogLevel)
		}
	}

	if settings.CommandTimeout < 0 || settings.LockWaitTimeout < 0 || settings.LockPollInterval < 0 {
		return errNegativeDuration
	}

	if settings.LockPollInterval == 0 {
		settings.LockPollInterval = DefaultLockPollInterval
	}

	if filepath.Clean(settings.RocmPath) == "." {
		return errRocmPathRequired
	}

	return nil
}
