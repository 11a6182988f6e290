package pkgmgr

import (
	"strings"

	"github.com/oshokin/rocjpeg-setup/internal/domain/platform"
	"github.com/oshokin/rocjpeg-setup/internal/manifest"
)

// Phase groups steps by purpose.
type Phase string

const (
	// PhaseElevation installs the elevation tool when running as root.
	PhaseElevation Phase = "elevation"
	// PhasePrepare validates credentials and refreshes the package index.
	PhasePrepare Phase = "prepare"
	// PhaseInstall installs one manifest group.
	PhaseInstall Phase = "install"
)

const installVerb = "install"

// Step is one package-manager invocation as an explicit argument list.
type Step struct {
	// Name labels the step in logs, e.g. "install build-tools".
	Name string
	// Phase is the purpose of the step.
	Phase Phase
	// Argv is the program followed by its arguments.
	Argv []string
}

// String renders the argv for humans. It is never passed to a shell.
func (s Step) String() string {
	return strings.Join(s.Argv, " ")
}

// Plan builds the ordered steps for a supported profile.
// Unsupported profiles produce no steps.
func Plan(profile platform.Profile, groups []manifest.Group, elevationTool string) []Step {
	if !profile.Supported() {
		return nil
	}

	if elevationTool == "" {
		elevationTool = "sudo"
	}

	prefix := profile.InstallerPrefix()
	steps := make([]Step, 0, len(groups)+5)

	if profile.IsRoot() {
		steps = append(steps,
			Step{
				Name:  "refresh package index",
				Phase: PhaseElevation,
				Argv:  join(prefix, profile.RefreshVerb()),
			},
			Step{
				Name:  "install " + elevationTool,
				Phase: PhaseElevation,
				Argv:  join(prefix, installVerb, elevationTool),
			},
		)
	}

	elevated := []string{elevationTool}
	if profile.SyncFlag() != "" {
		elevated = append(elevated, profile.SyncFlag())
	}

	elevated = append(elevated, prefix...)

	steps = append(steps,
		Step{
			Name:  "validate " + elevationTool + " credentials",
			Phase: PhasePrepare,
			Argv:  []string{elevationTool, "-v"},
		},
		Step{
			Name:  "refresh package index",
			Phase: PhasePrepare,
			Argv:  join(elevated, profile.RefreshVerb()),
		},
	)

	for _, group := range groups {
		args := append([]string{profile.UnauthenticatedFlag(), installVerb}, group.Packages...)
		steps = append(steps, Step{
			Name:  "install " + group.Name,
			Phase: PhaseInstall,
			Argv:  join(elevated, args...),
		})
	}

	return steps
}

// InstallSteps returns only the steps that install dependency groups.
func InstallSteps(steps []Step) []Step {
	var result []Step

	for _, step := range steps {
		if step.Phase == PhaseInstall {
			result = append(result, step)
		}
	}

	return result
}

// join returns a fresh slice holding prefix followed by args.
func join(prefix []string, args ...string) []string {
	out := make([]string, 0, len(prefix)+len(args))
	out = append(out, prefix...)

	return append(out, args...)
}
