package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/rocjpeg-setup/internal/logger"
)

// ErrPackageManagerBusy is returned when another package manager keeps running past the wait timeout.
var ErrPackageManagerBusy = errors.New("another package manager is running")

// packageManagerExecutables are process names that hold the package database lock.
// Resident daemons such as packagekitd do not count.
//
//nolint:gochecknoglobals // Read-only lookup table.
var packageManagerExecutables = []string{
	"apt",
	"apt-get",
	"dpkg",
	"unattended-upgr",
	"yum",
	"dnf",
	"rpm",
	"zypper",
}

// ProcessLister returns the current process table; ps.Processes in production.
type ProcessLister func() ([]ps.Process, error)

// BusyProcess is a running package manager found in the process table.
type BusyProcess struct {
	// PID is the process id.
	PID int
	// Executable is the process name.
	Executable string
}

// String renders the process as "name(pid)".
func (b BusyProcess) String() string {
	return fmt.Sprintf("%s(%d)", b.Executable, b.PID)
}

// FindBusy lists running package managers other than the current process.
func FindBusy(list ProcessLister) ([]BusyProcess, error) {
	if list == nil {
		list = ps.Processes
	}

	processList, err := list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var busy []BusyProcess

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !slices.Contains(packageManagerExecutables, process.Executable()) {
			continue
		}

		busy = append(busy, BusyProcess{PID: process.Pid(), Executable: process.Executable()})
	}

	return busy, nil
}

// WaitIdle polls the process table until no package manager runs, the timeout
// expires or ctx is done. A non-positive timeout skips the check entirely.
func WaitIdle(ctx context.Context, list ProcessLister, timeout, interval time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		busy, err := FindBusy(list)
		if err != nil {
			return err
		}

		if len(busy) == 0 {
			return nil
		}

		names := make([]string, 0, len(busy))
		for _, process := range busy {
			names = append(names, process.String())
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%s: %w", strings.Join(names, ", "), ErrPackageManagerBusy)
		}

		logger.InfoKV(ctx, "Waiting for package manager to finish", "processes", strings.Join(names, ", "))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
