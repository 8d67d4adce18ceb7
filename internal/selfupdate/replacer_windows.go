//go:build windows

package selfupdate

// Replace always fails on Windows: there is no execve, so PID continuity
// cannot be preserved. The orchestrator falls back to a manual-restart
// instruction.
func (ExecReplacer) Replace() error {
	return newErr(KindExec, "replace process", ErrExecUnsupported)
}
