package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
	"github.com/oshokin/rocjpeg-setup/internal/version"
)

// TestExitError checks the exit policy for unsupported platforms.
func TestExitError(t *testing.T) {
	t.Parallel()

	unsupported := fmt.Errorf("classify: %w", platform.ErrUnsupportedPlatform)

	require.NoError(t, exitError(nil, true))
	require.NoError(t, exitError(unsupported, false))
	require.ErrorIs(t, exitError(unsupported, true), platform.ErrUnsupportedPlatform)

	other := errors.New("install failed")
	require.ErrorIs(t, exitError(other, false), other)
}

// TestRootCmd_Flags ensures every documented flag is registered.
func TestRootCmd_Flags(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{
		"config", "rocm-path", "manifest", "log-level",
		"keep-going", "dry-run", "skip-rocm-check", "strict",
	} {
		require.NotNil(t, root.Flags().Lookup(name), name)
	}
}

// TestRootCmd_Version runs the version subcommand through the root command.
func TestRootCmd_Version(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), version.Full())
}

// TestRootCmd_RejectsArgs ensures positional arguments are refused.
func TestRootCmd_RejectsArgs(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"unexpected"})

	require.Error(t, root.Execute())
	require.Empty(t, errOut.String(), "errors are reported by Execute through the logger only")
	require.Empty(t, out.String())
}
