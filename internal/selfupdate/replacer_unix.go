//go:build !windows

package selfupdate

import (
	"os"
	"syscall"
)

// Replace swaps the process image via execve, keeping the PID. The freshly
// loaded program starts from its own main; this call never returns on
// success.
func (ExecReplacer) Replace() error {
	exe, err := os.Executable()
	if err != nil {
		return newErr(KindExec, "locate executable", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return newErr(KindExec, "exec "+exe, err)
	}
	return nil // unreachable
}
