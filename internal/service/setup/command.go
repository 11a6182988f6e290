package setup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/oshokin/rocjpeg-setup/internal/config"
	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
	"github.com/oshokin/rocjpeg-setup/internal/host"
	"github.com/oshokin/rocjpeg-setup/internal/logger"
	"github.com/oshokin/rocjpeg-setup/internal/manifest"
	"github.com/oshokin/rocjpeg-setup/internal/service/pkgmgr"
	"github.com/oshokin/rocjpeg-setup/internal/version"
)

// Detector gathers host facts and probes the filesystem. *host.Detector implements it.
type Detector interface {
	Detect(ctx context.Context) (*host.Facts, error)
	Probe(path string) bool
	Exists(path string) bool
}

// Options contains inputs for the setup entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// RocmPath overrides the configured ROCm path when not empty. ROCM_PATH still wins.
	RocmPath string
	// ManifestFile overrides the configured package manifest when not empty.
	ManifestFile string
	// LogLevel overrides the configured log level when not empty.
	LogLevel string
	// KeepGoing continues past failed invocations, like continue_on_error in the config.
	KeepGoing bool
	// DryRun logs every invocation without running it.
	DryRun bool
	// SkipRocmCheck disables the ROCm installation check.
	SkipRocmCheck bool

	// Detector replaces host detection; nil uses the real system.
	Detector Detector
	// Executor replaces the process runner; nil runs real processes (or logs them on dry runs).
	Executor pkgmgr.Executor
	// Processes replaces the process table source; nil uses go-ps.
	Processes pkgmgr.ProcessLister
	// LookupEnv replaces environment lookups; nil reads the process environment.
	LookupEnv config.LookupEnvFunc
}

// ErrROCmNotFound is returned when the ROCm installation path does not exist.
var ErrROCmNotFound = errors.New("rocm installation not found")

// runner holds the resolved collaborators of a single setup run.
// Callers go through Run.
type runner struct {
	cfg       *config.Config
	opts      *Options
	detector  Detector
	executor  pkgmgr.Executor
	processes pkgmgr.ProcessLister
}

// Run executes the setup workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "rocjpeg-setup")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	return r.Run(ctx)
}

// newRunner loads the configuration, applies overrides and resolves collaborators.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.RocmPath != "" {
		cfg.RocmPath = opts.RocmPath
	}

	if opts.ManifestFile != "" {
		cfg.ManifestFile = opts.ManifestFile
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	cfg.ContinueOnError = cfg.ContinueOnError || opts.KeepGoing

	config.ApplyEnvironment(cfg, opts.LookupEnv)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	r := &runner{
		cfg:       cfg,
		opts:      opts,
		detector:  opts.Detector,
		executor:  opts.Executor,
		processes: opts.Processes,
	}

	if r.detector == nil {
		r.detector = host.NewDetector()
	}

	if r.executor == nil {
		if opts.DryRun {
			r.executor = pkgmgr.DryRunExecutor{}
		} else {
			outputLevel, _ := logger.ParseLogLevel(cfg.OutputLogLevel)
			r.executor = pkgmgr.NewExecExecutor(cfg.CommandTimeout, outputLevel)
		}
	}

	return r, nil
}

// Run verifies ROCm, detects the platform and installs the dependency groups.
func (r *runner) Run(ctx context.Context) error {
	logger.Infof(ctx, "ROCm path set to %s", r.cfg.RocmPath)

	if err := r.checkRocm(ctx); err != nil {
		return err
	}

	profile, err := r.detectProfile(ctx)
	if err != nil {
		return err
	}

	steps, err := r.plan(profile)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "rocJPEG setup on: %s", profile.Platform())
	logger.Infof(ctx, "rocJPEG dependencies installation with %s", version.Banner())

	if !r.opts.DryRun {
		if err = pkgmgr.WaitIdle(ctx, r.processes, r.cfg.LockWaitTimeout, r.cfg.LockPollInterval); err != nil {
			return err
		}
	}

	if err = r.execute(ctx, steps); err != nil {
		return fmt.Errorf("rocJPEG dependencies installation: %w", err)
	}

	logger.Infof(ctx, "rocJPEG dependencies installed with %s", version.Banner())

	return nil
}

// checkRocm fails when the ROCm path is missing and prints rocminfo otherwise.
func (r *runner) checkRocm(ctx context.Context) error {
	if r.opts.SkipRocmCheck {
		logger.Info(ctx, "Skipping ROCm installation check")
		return nil
	}

	if !r.detector.Exists(r.cfg.RocmPath) {
		logger.Warn(ctx, "If ROCm is installed, set its path with the --rocm-path option or the ROCM_PATH variable")

		return fmt.Errorf("%s: %w", r.cfg.RocmPath, ErrROCmNotFound)
	}

	logger.Infof(ctx, "ROCm installation found at %s", r.cfg.RocmPath)

	result := r.executor.Execute(logger.WithName(ctx, "rocminfo"), pkgmgr.Step{
		Name:  "rocminfo",
		Phase: pkgmgr.PhasePrepare,
		Argv:  []string{filepath.Join(r.cfg.RocmPath, "bin", "rocminfo")},
	})
	if !result.OK() {
		logger.WarnKV(ctx, "rocminfo failed, continuing", "error", result.Err)
	}

	return nil
}

// detectProfile gathers host facts and classifies them once.
func (r *runner) detectProfile(ctx context.Context) (platform.Profile, error) {
	facts, err := r.detector.Detect(ctx)
	if err != nil {
		return platform.Profile{}, fmt.Errorf("detect host: %w", err)
	}

	logger.DebugKV(ctx, "Detected host", "platform", facts.Platform, "user", facts.Identity.Username)

	profile, err := platform.Classify(facts.Platform, r.detector.Probe, facts.Identity)
	if err != nil {
		logger.Errorf(ctx, "rocJPEG setup on %s is unsupported", facts.Platform)
		logger.Errorf(ctx, "rocJPEG setup supported on: %s", platform.SupportedPlatforms)

		return profile, err
	}

	logger.InfoKV(ctx, "Detected platform",
		"family", profile.Family().String(),
		"installer", profile.InstallerPrefix(),
		"cmake", profile.CMakeBinary(),
		"root", profile.IsRoot(),
	)

	return profile, nil
}

// plan resolves the package groups and builds the ordered steps.
func (r *runner) plan(profile platform.Profile) ([]pkgmgr.Step, error) {
	m, err := manifest.Load(r.cfg.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("load package manifest: %w", err)
	}

	return pkgmgr.Plan(profile, m.GroupsFor(profile), r.cfg.ElevationTool), nil
}

// execute runs steps in order. The first failure stops the run unless
// ContinueOnError is set; cancellation always stops it.
func (r *runner) execute(ctx context.Context, steps []pkgmgr.Step) error {
	var errs error

	for i, step := range steps {
		stepCtx := logger.WithFields(ctx, "step", step.Name, "phase", string(step.Phase))
		logger.InfoKV(stepCtx, "Running", "progress", fmt.Sprintf("%d/%d", i+1, len(steps)), "command", step.String())

		result := r.executor.Execute(stepCtx, step)
		if result.OK() {
			logger.DebugKV(stepCtx, "Step finished", "duration", result.Duration.String())
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return multierr.Append(errs, fmt.Errorf("interrupted: %w", ctxErr))
		}

		if !r.cfg.ContinueOnError {
			return result.Err
		}

		logger.WarnKV(stepCtx, "Step failed, continuing", "error", result.Err)

		errs = multierr.Append(errs, result.Err)
	}

	if n := len(multierr.Errors(errs)); n > 0 {
		return fmt.Errorf("%d of %d steps failed: %w", n, len(steps), errs)
	}

	return nil
}
