//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// IsRunning reports whether the PID file names a live process.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	// Signal 0 tests for existence without delivering anything.
	err = syscall.Kill(pid, 0)
	return pid, err == nil
}

// Stop sends SIGTERM to the process named in the PID file.
func (p *PIDFile) Stop() error {
	pid, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}
