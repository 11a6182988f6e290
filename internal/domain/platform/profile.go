package platform

import "slices"

// Profile is the resolved set of package-manager parameters for the host.
// It is built once by Classify and never changes afterwards.
type Profile struct {
	platform            string
	family              Family
	installerPrefix     []string
	unauthenticatedFlag string
	syncFlag            string
	refreshVerb         string
	cmakeBinary         string
	majorVersion        int
	isRoot              bool
}

// Family returns the detected distribution family.
func (p Profile) Family() Family { return p.family }

// Platform returns the identification string, tagged with the family marker when it lacked one.
func (p Profile) Platform() string { return p.platform }

// InstallerPrefix returns a copy of the package-manager argv prefix, e.g. ["apt-get", "-y"].
func (p Profile) InstallerPrefix() []string { return slices.Clone(p.installerPrefix) }

// UnauthenticatedFlag returns the flag disabling signature checks for the manager.
func (p Profile) UnauthenticatedFlag() string { return p.unauthenticatedFlag }

// SyncFlag returns the flag given to the elevation tool ahead of the manager, or "".
func (p Profile) SyncFlag() string { return p.syncFlag }

// RefreshVerb returns the manager verb that refreshes the package index.
func (p Profile) RefreshVerb() string { return p.refreshVerb }

// CMakeBinary returns the cmake package and binary name for the host.
func (p Profile) CMakeBinary() string { return p.cmakeBinary }

// MajorVersion returns the distribution major version, or 0 when unknown.
func (p Profile) MajorVersion() int { return p.majorVersion }

// IsRoot reports whether the invoking identity is the superuser.
func (p Profile) IsRoot() bool { return p.isRoot }

// Supported reports whether the profile has a package manager.
func (p Profile) Supported() bool { return p.family != Unsupported }
