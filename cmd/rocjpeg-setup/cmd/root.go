package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/rocjpeg-setup/internal/config"
	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
	"github.com/oshokin/rocjpeg-setup/internal/logger"
	"github.com/oshokin/rocjpeg-setup/internal/service/setup"
	"github.com/oshokin/rocjpeg-setup/internal/version"
)

// flags holds the values bound to the root command's flags.
type flags struct {
	// configPath to the configuration YAML file.
	configPath string
	// rocmPath overrides the configured ROCm installation path.
	rocmPath string
	// manifestFile overrides the embedded package manifest.
	manifestFile string
	// logLevel overrides the configured log level.
	logLevel string
	// keepGoing continues after a failed package-manager invocation.
	keepGoing bool
	// dryRun prints the invocations without running them.
	dryRun bool
	// skipRocmCheck disables the ROCm installation check.
	skipRocmCheck bool
	// strict turns the unsupported-platform exit into a failure.
	strict bool
}

// newRootCmd builds the command that installs the rocJPEG dependencies.
func newRootCmd() *cobra.Command {
	f := new(flags)

	rootCmd := &cobra.Command{
		Use:   "rocjpeg-setup",
		Short: "Install the build and multimedia dependencies of rocJPEG.",
		Long: `Detects the Linux distribution family and installs the packages needed to
build rocJPEG with the native package manager (apt-get, yum or zypper).

Supported on: ` + platform.SupportedPlatforms + `.

ROCm must be installed first. Its path defaults to /opt/rocm and can be changed
with --rocm-path; the ROCM_PATH environment variable takes precedence over both
the flag and the configuration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &setup.Options{
				ConfigPath:    f.configPath,
				RocmPath:      f.rocmPath,
				ManifestFile:  f.manifestFile,
				LogLevel:      f.logLevel,
				KeepGoing:     f.keepGoing,
				DryRun:        f.dryRun,
				SkipRocmCheck: f.skipRocmCheck,
			}

			return exitError(setup.Run(ctx, options), f.strict)
		},
	}

	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&f.rocmPath, "rocm-path", "", "ROCm installation path (default "+config.DefaultRocmPath+")")
	rootCmd.Flags().StringVarP(&f.manifestFile, "manifest", "m", "", "package manifest replacing the built-in lists")
	rootCmd.Flags().StringVarP(&f.logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVarP(&f.keepGoing, "keep-going", "k", false, "continue after a failed install command")
	rootCmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "print the commands without running them")
	rootCmd.Flags().BoolVar(&f.skipRocmCheck, "skip-rocm-check", false, "do not require a ROCm installation")
	rootCmd.Flags().BoolVar(&f.strict, "strict", false, "exit with a non-zero status on unsupported platforms")

	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// exitError maps setup errors to the process exit policy: an unsupported
// platform is a clean exit unless strict mode is on.
func exitError(err error, strict bool) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, platform.ErrUnsupportedPlatform) && !strict {
		return nil
	}

	return err
}

// Execute runs the rocjpeg-setup CLI and exits with non-zero status on error.
// Errors are reported once, through the logger.
func Execute() {
	ctx := context.Background()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.ErrorKV(ctx, "rocjpeg-setup failed", "error", err)
		os.Exit(1)
	}
}
