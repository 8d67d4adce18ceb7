package selfupdate

import (
	"context"

	"aiko/internal/git"
)

// installCommand reinstalls declared dependencies after the manifest
// changed. It runs inside the install checkout.
var installCommand = []string{"go", "mod", "download"}

// Applier synchronizes the install checkout to the remote default branch
// head and reinstalls dependencies when the manifest changed.
//
// Policy: the installed copy always mirrors the remote default branch. A
// fast-forward is attempted first; if local history diverged or the
// worktree is dirty, the applier hard-resets to the remote head and local
// state is discarded, not merged.
//
// The Applier itself is not concurrency-safe; the Orchestrator's
// single-flight guard ensures at most one Apply is ever in flight.
type Applier struct {
	git    git.Client
	runner CommandRunner
	cfg    Config
}

// NewApplier creates an Applier for the configured checkout.
func NewApplier(g git.Client, runner CommandRunner, cfg Config) *Applier {
	return &Applier{git: g, runner: runner, cfg: cfg}
}

// Apply performs the full sync. The context bounds only the network fetch;
// once the worktree mutation begins the apply runs to completion. If the
// dependency install fails the source stays at the new revision and the
// failure is reported (dependencies are retried on the next apply).
func (a *Applier) Apply(ctx context.Context) ApplyResult {
	from, err := a.git.Head(a.cfg.Dir)
	if err != nil {
		return failure(from, "", newErr(KindPermission, "read local revision", err))
	}

	manifestBefore, _ := a.git.HashObject(a.cfg.Dir, a.cfg.Manifest)

	fetchCtx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
	defer cancel()
	if err := a.git.Fetch(fetchCtx, a.cfg.Dir, a.cfg.Remote, a.cfg.Branch); err != nil {
		return failure(from, "", newErr(KindNetwork, "fetch "+a.cfg.Remote, err))
	}

	upstream := a.cfg.Remote + "/" + a.cfg.Branch
	to, err := a.git.RevParse(a.cfg.Dir, upstream)
	if err != nil {
		return failure(from, "", newErr(KindNetwork, "resolve "+upstream, err))
	}

	if to == from {
		return ApplyResult{Success: true, From: from, To: to}
	}

	// Point of no cancellation: from here the worktree is being mutated.
	// merge --ff-only either fully succeeds or leaves the tree untouched,
	// and reset --hard replaces it wholesale, so no path leaves a
	// half-merged tree behind.
	if err := a.git.MergeFFOnly(a.cfg.Dir, to); err != nil {
		if err := a.git.ResetHard(a.cfg.Dir, to); err != nil {
			return failure(from, to, newErr(KindPermission, "reset to "+short(to), err))
		}
	}

	result := ApplyResult{Success: true, From: from, To: to}
	if files, err := a.git.DiffNameOnly(a.cfg.Dir, from, to); err == nil {
		result.FilesChanged = files
	}

	manifestAfter, _ := a.git.HashObject(a.cfg.Dir, a.cfg.Manifest)
	if manifestAfter != "" && manifestAfter != manifestBefore {
		result.DepsChanged = true
		if err := a.runner.Run(context.Background(), a.cfg.Dir, installCommand[0], installCommand[1:]...); err != nil {
			// Source stays at the new revision; the install is retried on
			// the next apply because the manifest hash still differs from
			// what was last installed.
			result.Success = false
			result.Err = newErr(KindDependency, "reinstall dependencies", err).Error()
		}
	}

	return result
}

func failure(from, to string, err *UpdateError) ApplyResult {
	return ApplyResult{From: from, To: to, Err: err.Error()}
}

// short abbreviates a commit hash for user-facing messages.
func short(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
