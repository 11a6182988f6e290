package platform

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	// AptGetPath is probed when the identification string carries no distribution marker.
	AptGetPath = "/usr/bin/apt-get"
	// ZypperPath is probed after apt-get.
	ZypperPath = "/usr/bin/zypper"
	// YumPath is the last resort probe.
	YumPath = "/usr/bin/yum"

	// SupportedPlatforms names the distributions the dependency lists are maintained for.
	SupportedPlatforms = "Ubuntu 20/22; CentOS 7/8; RedHat 7/8; SLES 15-SP2"

	defaultCMakeBinary = "cmake"
	legacyCMakeBinary  = "cmake3"
	legacyMajorVersion = 7
)

var (
	// ErrUnsupportedPlatform is returned when no family matches the host.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrUnknownFamily is returned when parsing an unknown family name.
	ErrUnknownFamily = errors.New("unknown family")

	// redHatVersion captures the first number following a RedHat-like marker.
	redHatVersion = regexp.MustCompile(`(?i)(?:centos|redhat)\D*?(\d+)`)
)

// PathProbe reports whether an executable exists at the given absolute path.
type PathProbe func(path string) bool

// Identity is the invoking user as seen by the installer.
type Identity struct {
	// Username is the login name, e.g. "root".
	Username string
	// UID is the numeric user id as a string, "0" for the superuser.
	UID string
}

// IsRoot reports whether the identity is the superuser.
func (i Identity) IsRoot() bool {
	return i.Username == "root" || i.UID == "0"
}

// Classify maps a platform identification string to a Profile.
// Markers are matched case-insensitively in priority order: "centos", "redhat",
// "ubuntu", then apt-get, zypper and yum executables. The first match wins.
// When nothing matches the returned profile is Unsupported together with ErrUnsupportedPlatform.
func Classify(platform string, probe PathProbe, identity Identity) (Profile, error) {
	if probe == nil {
		probe = func(string) bool { return false }
	}

	lowered := strings.ToLower(platform)
	profile := Profile{
		platform:    platform,
		family:      Unsupported,
		cmakeBinary: defaultCMakeBinary,
		isRoot:      identity.IsRoot(),
	}

	switch {
	case strings.Contains(lowered, "centos") || strings.Contains(lowered, "redhat"):
		profile = redHat(profile, platform)
	case strings.Contains(lowered, "ubuntu"):
		profile = debian(profile)
	case probe(AptGetPath):
		profile = debian(profile)
		profile.platform += "-Ubuntu"
	case probe(ZypperPath):
		profile = suse(profile)
		profile.platform += "-SLES"
	case probe(YumPath):
		profile = redHat(profile, platform)
		profile.platform += "-redhat"
	default:
		return profile, ErrUnsupportedPlatform
	}

	return profile, nil
}

func redHat(p Profile, platform string) Profile {
	p.family = RedHatLike
	p.installerPrefix = []string{"yum", "-y"}
	p.unauthenticatedFlag = "--nogpgcheck"
	p.refreshVerb = "update"
	p.majorVersion = parseRedHatMajor(platform)

	if p.majorVersion == legacyMajorVersion {
		p.cmakeBinary = legacyCMakeBinary
	}

	return p
}

func debian(p Profile) Profile {
	p.family = DebianLike
	p.installerPrefix = []string{"apt-get", "-y"}
	p.unauthenticatedFlag = "--allow-unauthenticated"
	p.syncFlag = "-S"
	p.refreshVerb = "update"

	return p
}

func suse(p Profile) Profile {
	p.family = SUSELike
	p.installerPrefix = []string{"zypper", "-n"}
	p.unauthenticatedFlag = "--no-gpg-checks"
	p.refreshVerb = "refresh"

	return p
}

// parseRedHatMajor extracts the major version following "centos" or "redhat".
func parseRedHatMajor(platform string) int {
	match := redHatVersion.FindStringSubmatch(platform)
	if len(match) < 2 {
		return 0
	}

	major, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}

	return major
}
