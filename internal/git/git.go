package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Client defines the git operations the self-update core needs.
// All methods take the checkout path so fakes and temp repos are trivial
// to construct in tests.
type Client interface {
	// Local reads (no network, no mutation).
	Head(path string) (string, error)
	RevParse(path, rev string) (string, error)
	IsClean(path string) (bool, error)
	RemoteURL(path, remote string) (string, error)
	HashObject(path, file string) (string, error)
	CommitsBehind(path, upstream string) (int, error)
	RecentSubjects(path, revRange string, limit int) ([]string, error)
	DiffNameOnly(path, from, to string) ([]string, error)

	// Network / worktree mutation.
	Fetch(ctx context.Context, path, remote, branch string) error
	MergeFFOnly(path, rev string) error
	ResetHard(path, rev string) error
}

// CommandError carries the exit code and captured stderr of a failed git
// invocation so callers can classify failures without string matching.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

// RealClient implements Client. Local reads go through go-git; anything
// that touches the network or mutates the worktree shells out to the git
// binary, which handles remote protocols and merge semantics that go-git
// does not cover reliably.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(ctx context.Context, path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, "git", fullArgs...)
	} else {
		cmd = exec.Command("git", fullArgs...)
	}
	out, err := cmd.Output()
	if err != nil {
		cerr := &CommandError{Args: args, ExitCode: -1, Err: err}
		if exitErr, ok := err.(*exec.ExitError); ok {
			cerr.ExitCode = exitErr.ExitCode()
			cerr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", cerr
	}
	return strings.TrimSpace(string(out)), nil
}

// Head returns the full commit hash of the checkout's HEAD.
func (c *RealClient) Head(path string) (string, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// RevParse resolves an arbitrary revision (e.g. "origin/main") to a hash.
func (c *RealClient) RevParse(path, rev string) (string, error) {
	return gitCmd(nil, path, "rev-parse", rev)
}

// IsClean reports whether the worktree has no local modifications.
func (c *RealClient) IsClean(path string) (bool, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return false, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("get status: %w", err)
	}
	return status.IsClean(), nil
}

// RemoteURL returns the fetch URL of the named remote, or "" if the
// remote is not configured.
func (c *RealClient) RemoteURL(path, remote string) (string, error) {
	out, err := gitCmd(nil, path, "remote", "get-url", remote)
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

// HashObject returns the blob hash of a file in the worktree, or "" if
// the file does not exist.
func (c *RealClient) HashObject(path, file string) (string, error) {
	out, err := gitCmd(nil, path, "hash-object", file)
	if err != nil {
		return "", nil // missing manifest is treated as "no manifest"
	}
	return out, nil
}

// CommitsBehind counts commits reachable from upstream but not from HEAD.
func (c *RealClient) CommitsBehind(path, upstream string) (int, error) {
	out, err := gitCmd(nil, path, "rev-list", "--count", "HEAD.."+upstream)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", out, err)
	}
	return n, nil
}

// RecentSubjects returns up to limit commit subjects in the given range,
// newest first.
func (c *RealClient) RecentSubjects(path, revRange string, limit int) ([]string, error) {
	out, err := gitCmd(nil, path, "log", revRange, "--format=%s", "--max-count="+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

// DiffNameOnly lists the paths that differ between two revisions.
func (c *RealClient) DiffNameOnly(path, from, to string) ([]string, error) {
	out, err := gitCmd(nil, path, "diff", "--name-only", from+".."+to)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Fetch updates the remote tracking ref for the given branch. The context
// bounds only this network step; worktree mutation never runs under it.
func (c *RealClient) Fetch(ctx context.Context, path, remote, branch string) error {
	_, err := gitCmd(ctx, path, "fetch", remote, branch)
	return err
}

// MergeFFOnly fast-forwards HEAD to rev. Fails if history has diverged
// or the worktree is dirty; callers fall back to ResetHard.
func (c *RealClient) MergeFFOnly(path, rev string) error {
	_, err := gitCmd(nil, path, "merge", "--ff-only", rev)
	return err
}

// ResetHard moves HEAD to rev and discards all local changes.
func (c *RealClient) ResetHard(path, rev string) error {
	_, err := gitCmd(nil, path, "reset", "--hard", rev)
	return err
}
