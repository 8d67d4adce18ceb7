package selfupdate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs one external command in a directory. The dependency
// install step goes through this so tests can fail it deterministically.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, folding combined output into the
// returned error.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), detail)
	}
	return nil
}
