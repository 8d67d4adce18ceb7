package selfupdate

import "errors"

// ErrExecUnsupported is returned where the platform has no execve
// equivalent; the caller surfaces a manual-restart instruction instead.
var ErrExecUnsupported = errors.New("process image replacement is not supported on this platform")

// Replacer supplants the running process image with a freshly started one
// under the same PID, so a supervisor never observes an exit.
type Replacer interface {
	// Replace does not return on success. On failure it returns an error
	// and the current process keeps running.
	Replace() error
}

// ExecReplacer re-executes the current binary with the original arguments
// and environment.
type ExecReplacer struct{}

// NewReplacer returns the platform replacer.
func NewReplacer() ExecReplacer {
	return ExecReplacer{}
}
