package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
)

func classify(t *testing.T, platformString string, paths ...string) platform.Profile {
	t.Helper()

	probe := func(path string) bool {
		for _, p := range paths {
			if p == path {
				return true
			}
		}

		return false
	}

	profile, err := platform.Classify(platformString, probe, platform.Identity{Username: "builder", UID: "1000"})
	require.NoError(t, err)

	return profile
}

// TestDefault_Debian checks the three ordered Debian groups and the 22.04 addition.
func TestDefault_Debian(t *testing.T) {
	t.Parallel()

	m, err := Default()
	require.NoError(t, err)

	groups := m.GroupsFor(classify(t, "Linux-5.15-x86_64-with-glibc2.31", platform.AptGetPath))
	require.Len(t, groups, 3)
	require.Equal(t, "build-tools", groups[0].Name)
	require.Equal(t, []string{"gcc", "cmake", "pkg-config"}, groups[0].Packages)
	require.Equal(t, "compiler-codec-headers", groups[1].Name)
	require.NotContains(t, groups[1].Packages, "libstdc++-12-dev")
	require.Equal(t, "media-libraries", groups[2].Name)

	groups = m.GroupsFor(classify(t, "Linux-5.15.0-x86_64-with-Ubuntu-22.04-jammy"))
	require.Contains(t, groups[1].Packages, "libstdc++-12-dev")
}

// TestDefault_RedHat checks the single combined group and cmake expansion.
func TestDefault_RedHat(t *testing.T) {
	t.Parallel()

	m, err := Default()
	require.NoError(t, err)

	groups := m.GroupsFor(classify(t, "CentOS Linux-7.9.2009-Core"))
	require.Len(t, groups, 1)
	require.Contains(t, groups[0].Packages, "cmake3")
	require.NotContains(t, groups[0].Packages, CMakePlaceholder)

	groups = m.GroupsFor(classify(t, "redhat-8.8"))
	require.Contains(t, groups[0].Packages, "cmake")

	// The manifest keeps the placeholder for later profiles.
	require.Contains(t, m.Families[platform.RedHatLike][0].Packages, CMakePlaceholder)
}

// TestDefault_SUSE checks the single combined group on zypper hosts.
func TestDefault_SUSE(t *testing.T) {
	t.Parallel()

	m, err := Default()
	require.NoError(t, err)

	groups := m.GroupsFor(classify(t, "openSUSE-Leap-15.2", platform.ZypperPath))
	require.Len(t, groups, 1)
	require.Equal(t, "dependencies", groups[0].Name)
	require.Contains(t, groups[0].Packages, "cmake")
	require.NotContains(t, m.Families[platform.SUSELike][0].Packages, CMakePlaceholder)
}

// TestParse_Invalid rejects manifests missing a family or with empty groups.
func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("families:\n  debian:\n    - name: a\n      packages: [gcc]\n"))
	require.ErrorIs(t, err, errNoGroups)

	_, err = Parse([]byte(`families:
  debian: [{name: a, packages: [gcc]}]
  redhat: [{name: b, packages: []}]
  suse: [{name: c, packages: [gcc]}]
`))
	require.ErrorIs(t, err, errEmptyGroup)

	_, err = Parse([]byte("families:\n  gentoo: []\n"))
	require.ErrorIs(t, err, platform.ErrUnknownFamily)
}

// TestLoad_File reads an override manifest from disk.
func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "packages.yaml")
	contents := `families:
  debian: [{name: minimal, packages: [gcc]}]
  redhat: [{name: minimal, packages: [gcc]}]
  suse: [{name: minimal, packages: [gcc]}]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"gcc"}, m.Families[platform.SUSELike][0].Packages)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
