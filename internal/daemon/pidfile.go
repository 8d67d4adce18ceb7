package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDFile tracks the single running assistant process. Two pollers on
// the same Telegram token would steal each other's updates, so the
// serve loop acquires the file before connecting and refuses to start
// while another live instance holds it. A self-update restart replaces
// the process image under the same PID, so the file stays valid across
// updates without being rewritten.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire claims the PID file for the current process. It fails if the
// file already names a live process.
func (p *PIDFile) Acquire() error {
	if pid, running := p.IsRunning(); running {
		return fmt.Errorf("already running with PID %d", pid)
	}
	return p.WritePID(os.Getpid())
}

// Release removes the PID file. Stale or missing files are not an
// error; the next Acquire overwrites them anyway.
func (p *PIDFile) Release() error {
	err := os.Remove(p.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WritePID writes the given PID to the file.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}
