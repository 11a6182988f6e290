package platform

import (
	"fmt"
	"strings"
)

// Family is the coarse distribution classification driving the package-manager syntax.
type Family int

const (
	// Unsupported means no known distribution marker or package manager was found.
	Unsupported Family = iota
	// RedHatLike covers CentOS and Red Hat Enterprise Linux (yum).
	RedHatLike
	// DebianLike covers Ubuntu and other apt-get based distributions.
	DebianLike
	// SUSELike covers SLES and openSUSE (zypper).
	SUSELike
)

// familyNames maps families to their manifest keys.
//
//nolint:gochecknoglobals // Read-only lookup table.
var familyNames = map[Family]string{
	Unsupported: "unsupported",
	RedHatLike:  "redhat",
	DebianLike:  "debian",
	SUSELike:    "suse",
}

// String returns the manifest key of the family.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}

	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily converts a manifest key back to a Family.
func ParseFamily(s string) (Family, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for family, name := range familyNames {
		if name == s {
			return family, nil
		}
	}

	return Unsupported, fmt.Errorf("%q: %w", s, ErrUnknownFamily)
}

// SupportedFamilies lists the families that have a package manager, in detection order.
func SupportedFamilies() []Family {
	return []Family{RedHatLike, DebianLike, SUSELike}
}

// MarshalText implements encoding.TextMarshaler so families can be used as YAML keys.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}
