package selfupdate

import "fmt"

// ErrKind classifies update failures so callers can phrase them without
// string-matching subprocess output.
type ErrKind string

const (
	KindNetwork    ErrKind = "network"    // remote unreachable or fetch timed out
	KindPermission ErrKind = "permission" // cannot mutate the install checkout
	KindDependency ErrKind = "dependency" // manifest reinstall failed
	KindExec       ErrKind = "exec"       // process image swap failed
)

// UpdateError wraps a failure from one step of the update pipeline.
type UpdateError struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

func newErr(kind ErrKind, op string, err error) *UpdateError {
	return &UpdateError{Kind: kind, Op: op, Err: err}
}
