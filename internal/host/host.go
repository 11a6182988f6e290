package host

import (
	"context"
	"fmt"
	"os/user"
	"runtime"
	"strings"

	gohost "github.com/shirou/gopsutil/host"
	"github.com/spf13/afero"

	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
)

// InfoFunc returns host information; gohost.InfoWithContext in production.
type InfoFunc func(ctx context.Context) (*gohost.InfoStat, error)

// Facts bundles what the installer needs to know about the machine.
type Facts struct {
	// Platform is the identification string, e.g. "Linux-5.15.0-x86_64-with-ubuntu-22.04".
	Platform string
	// Identity is the invoking user.
	Identity platform.Identity
}

// Detector collects Facts. The zero value is not usable; call NewDetector.
type Detector struct {
	fs      afero.Fs
	info    InfoFunc
	current func() (*user.User, error)
}

// Option configures a Detector.
type Option func(*Detector)

// WithFs replaces the filesystem used by executable probes.
func WithFs(fs afero.Fs) Option {
	return func(d *Detector) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithInfo replaces the host information source.
func WithInfo(info InfoFunc) Option {
	return func(d *Detector) {
		if info != nil {
			d.info = info
		}
	}
}

// WithCurrentUser replaces the identity source.
func WithCurrentUser(current func() (*user.User, error)) Option {
	return func(d *Detector) {
		if current != nil {
			d.current = current
		}
	}
}

// NewDetector returns a Detector backed by the real OS unless options say otherwise.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		fs:      afero.NewOsFs(),
		info:    gohost.InfoWithContext,
		current: user.Current,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect gathers the platform string and the current identity.
func (d *Detector) Detect(ctx context.Context) (*Facts, error) {
	info, err := d.info(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}

	currentUser, err := d.current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Facts{
		Platform: PlatformString(info),
		Identity: platform.Identity{
			Username: currentUser.Username,
			UID:      currentUser.Uid,
		},
	}, nil
}

// Probe reports whether a regular, executable file exists at path.
// It matches platform.PathProbe.
func (d *Detector) Probe(path string) bool {
	info, err := d.fs.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// Exists reports whether anything exists at path.
func (d *Detector) Exists(path string) bool {
	ok, err := afero.Exists(d.fs, path)

	return err == nil && ok
}

// PlatformString renders host information as "<OS>-<kernel>-<arch>-with-<platform>-<version>".
// Missing parts are dropped instead of leaving empty segments.
func PlatformString(info *gohost.InfoStat) string {
	if info == nil {
		return runtime.GOOS
	}

	system := info.OS
	if system == "" {
		system = runtime.GOOS
	}

	arch := info.KernelArch
	if arch == "" {
		arch = runtime.GOARCH
	}

	parts := []string{capitalize(system)}
	if info.KernelVersion != "" {
		parts = append(parts, info.KernelVersion)
	}

	parts = append(parts, arch)

	if info.Platform != "" {
		parts = append(parts, "with", info.Platform)
		if info.PlatformVersion != "" {
			parts = append(parts, info.PlatformVersion)
		}
	}

	return strings.Join(parts, "-")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
