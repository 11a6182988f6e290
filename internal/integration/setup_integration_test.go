package integration

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-ps"
	gohost "github.com/shirou/gopsutil/host"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/rocjpeg-setup/internal/config"
	"github.com/oshokin/rocjpeg-setup/internal/host"
	"github.com/oshokin/rocjpeg-setup/internal/service/pkgmgr"
	"github.com/oshokin/rocjpeg-setup/internal/service/setup"
)

// fakeTool records its name and arguments in $SETUP_LOG.
// "sudo" drops its own flags and runs the rest; "apt-get" fails when asked for vainfo.
const fakeTool = `#!/bin/sh
echo "${0##*/} $*" >> "$SETUP_LOG"
case "${0##*/}" in
sudo)
	while [ "$#" -gt 0 ]; do
		case "$1" in
		-*) shift ;;
		*) break ;;
		esac
	done
	[ "$#" -eq 0 ] && exit 0
	exec "$@"
	;;
apt-get)
	for arg in "$@"; do
		[ "$arg" = "vainfo" ] && echo "E: Unable to locate package vainfo" && exit 100
	done
	;;
esac
exit 0
`

// installFakeTools puts fake sudo and apt-get on PATH and returns the log path.
func installFakeTools(t *testing.T) string {
	t.Helper()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh is not available")
	}

	dir := t.TempDir()
	for _, name := range []string{"sudo", "apt-get"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(fakeTool), 0o755)) //nolint:gosec // Test script.
	}

	logPath := filepath.Join(dir, "calls.log")

	t.Setenv("PATH", dir)
	t.Setenv("SETUP_LOG", logPath)
	t.Setenv(config.RocmPathEnv, "")

	return logPath
}

func readCalls(t *testing.T, logPath string) []string {
	t.Helper()

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(contents)), "\n")
}

func ubuntuDetector() *host.Detector {
	return host.NewDetector(
		host.WithInfo(func(context.Context) (*gohost.InfoStat, error) {
			return &gohost.InfoStat{
				OS:              "linux",
				Platform:        "ubuntu",
				PlatformVersion: "20.04",
				KernelVersion:   "5.4.0-166-generic",
				KernelArch:      "x86_64",
			}, nil
		}),
		host.WithCurrentUser(func() (*user.User, error) {
			return &user.User{Username: "builder", Uid: "1000"}, nil
		}),
	)
}

func writeConfig(t *testing.T, keepGoing bool) string {
	t.Helper()

	cfg := config.Default()
	cfg.ContinueOnError = keepGoing
	cfg.LockWaitTimeout = 0

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path
}

func idle() ([]ps.Process, error) { return nil, nil }

// TestSetup_RunsRealProcessesFailFast executes the plan through real child
// processes and stops at the first failing group.
func TestSetup_RunsRealProcessesFailFast(t *testing.T) {
	logPath := installFakeTools(t)

	err := setup.Run(context.Background(), &setup.Options{
		ConfigPath:    writeConfig(t, false),
		SkipRocmCheck: true,
		Detector:      ubuntuDetector(),
		Processes:     idle,
	})

	var cmdErr *pkgmgr.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, "install media-libraries", cmdErr.Step.Name)
	require.Equal(t, 100, cmdErr.ExitCode)
	require.Contains(t, cmdErr.Output, "E: Unable to locate package vainfo")

	calls := readCalls(t, logPath)
	require.Equal(t, "sudo -v", calls[0])
	require.Equal(t, "sudo -S apt-get -y update", calls[1])
	require.Equal(t, "apt-get -y update", calls[2])
	require.Equal(t, "sudo -S apt-get -y --allow-unauthenticated install gcc cmake pkg-config", calls[3])
	require.True(t, strings.HasPrefix(calls[len(calls)-1], "apt-get -y --allow-unauthenticated install vainfo"))
}

// TestSetup_RunsRealProcessesKeepGoing checks that keep-going still reports the failure.
func TestSetup_RunsRealProcessesKeepGoing(t *testing.T) {
	logPath := installFakeTools(t)

	err := setup.Run(context.Background(), &setup.Options{
		ConfigPath:    writeConfig(t, true),
		SkipRocmCheck: true,
		Detector:      ubuntuDetector(),
		Processes:     idle,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 5 steps failed")

	calls := readCalls(t, logPath)
	require.NotContains(t, strings.Join(calls, "\n"), "libstdc++-12-dev", "20.04 does not get the 22.04 extras")
}

// TestSetup_DryRunRunsNothing ensures the dry run never starts a process.
func TestSetup_DryRunRunsNothing(t *testing.T) {
	logPath := installFakeTools(t)

	err := setup.Run(context.Background(), &setup.Options{
		ConfigPath:    writeConfig(t, false),
		SkipRocmCheck: true,
		DryRun:        true,
		Detector:      ubuntuDetector(),
		Processes:     idle,
	})
	require.NoError(t, err)

	_, err = os.Stat(logPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}
