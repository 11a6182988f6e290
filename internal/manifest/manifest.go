package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
)

// CMakePlaceholder expands to the profile's cmake binary name.
const CMakePlaceholder = "{{cmake}}"

//go:embed packages.yaml
var defaultManifest []byte

var (
	// errNoGroups is returned when a supported family has nothing to install.
	errNoGroups = errors.New("no package groups")
	// errEmptyGroup is returned for a group without packages or name.
	errEmptyGroup = errors.New("empty package group")
)

// Extra adds packages to a group when the platform string contains a marker.
type Extra struct {
	// PlatformContains must be a substring of the platform string.
	PlatformContains string `yaml:"platform_contains"`
	// Packages are appended to the group when the condition holds.
	Packages []string `yaml:"packages"`
}

// Group is one install invocation worth of packages.
type Group struct {
	// Name labels the group in logs and errors.
	Name string `yaml:"name"`
	// Packages are installed in a single package-manager call.
	Packages []string `yaml:"packages"`
	// Extra lists conditional additions.
	Extra []Extra `yaml:"extra,omitempty"`
}

// Manifest maps every supported family to its ordered package groups.
type Manifest struct {
	Families map[platform.Family][]Group `yaml:"families"`
}

// Default returns the embedded manifest.
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads a manifest from path, or returns the embedded one when path is empty.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Parse decodes and validates a manifest document.
func Parse(contents []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks that every supported family has at least one non-empty group.
func (m *Manifest) Validate() error {
	for _, family := range platform.SupportedFamilies() {
		groups := m.Families[family]
		if len(groups) == 0 {
			return fmt.Errorf("%s: %w", family, errNoGroups)
		}

		for i, group := range groups {
			if strings.TrimSpace(group.Name) == "" || len(group.Packages) == 0 {
				return fmt.Errorf("%s group #%d: %w", family, i+1, errEmptyGroup)
			}
		}
	}

	return nil
}

// GroupsFor resolves the groups for a profile: conditional extras are applied
// and the cmake placeholder is expanded. The manifest itself is not modified.
func (m *Manifest) GroupsFor(profile platform.Profile) []Group {
	source := m.Families[profile.Family()]
	resolved := make([]Group, 0, len(source))

	for _, group := range source {
		packages := make([]string, 0, len(group.Packages))
		for _, name := range group.Packages {
			packages = append(packages, expand(name, profile))
		}

		for _, extra := range group.Extra {
			if extra.PlatformContains != "" && strings.Contains(profile.Platform(), extra.PlatformContains) {
				for _, name := range extra.Packages {
					packages = append(packages, expand(name, profile))
				}
			}
		}

		resolved = append(resolved, Group{Name: group.Name, Packages: packages})
	}

	return resolved
}

func expand(name string, profile platform.Profile) string {
	return strings.ReplaceAll(name, CMakePlaceholder, profile.CMakeBinary())
}
