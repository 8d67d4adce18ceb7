package selfupdate

import (
	"context"
	"time"

	"aiko/internal/git"
)

const (
	defaultFetchTimeout = 30 * time.Second
	changelogLimit      = 10
)

// Checker probes the remote for a newer revision of the installed source.
// It never mutates the worktree; failures are absorbed into the result so
// a flaky network can never take the host process down.
type Checker struct {
	git          git.Client
	cfg          Config
	fetchTimeout time.Duration
}

// NewChecker creates a Checker for the configured checkout.
func NewChecker(g git.Client, cfg Config) *Checker {
	return &Checker{git: g, cfg: cfg, fetchTimeout: defaultFetchTimeout}
}

// CheckForUpdates fetches the remote default branch and reports whether
// the local HEAD is behind it. The deadline covers only the network fetch.
func (c *Checker) CheckForUpdates(ctx context.Context) CheckResult {
	local, err := c.git.Head(c.cfg.Dir)
	if err != nil {
		return CheckResult{Err: "cannot read local revision: " + err.Error()}
	}

	url, err := c.git.RemoteURL(c.cfg.Dir, c.cfg.Remote)
	if err != nil || url == "" {
		return CheckResult{Local: local, Err: "remote " + c.cfg.Remote + " is not configured"}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	if err := c.git.Fetch(fetchCtx, c.cfg.Dir, c.cfg.Remote, c.cfg.Branch); err != nil {
		return CheckResult{Local: local, Err: "could not reach " + url + ": " + err.Error()}
	}

	upstream := c.cfg.Remote + "/" + c.cfg.Branch
	remote, err := c.git.RevParse(c.cfg.Dir, upstream)
	if err != nil {
		return CheckResult{Local: local, Err: "cannot resolve " + upstream + ": " + err.Error()}
	}

	behind, err := c.git.CommitsBehind(c.cfg.Dir, upstream)
	if err != nil {
		return CheckResult{Local: local, Remote: remote, Err: "cannot count revisions: " + err.Error()}
	}

	result := CheckResult{
		Available:     behind > 0,
		Local:         local,
		Remote:        remote,
		CommitsBehind: behind,
	}
	if result.Available {
		// Changelog is cosmetic; a failure here does not fail the check.
		if subjects, err := c.git.RecentSubjects(c.cfg.Dir, "HEAD.."+upstream, changelogLimit); err == nil {
			result.Changes = subjects
		}
	}
	return result
}
