package selfupdate

import (
	"context"
	"sync"
)

// fakeGit implements git.Client for the checker/applier tests. Head is
// mutable state so merges and resets are observable; manifestHashes is a
// queue consumed by successive HashObject calls.
type fakeGit struct {
	mu sync.Mutex

	head           string
	remoteURL      string
	remoteHead     string
	behind         int
	subjects       []string
	files          []string
	manifestHashes []string

	fetchErr error
	mergeErr error
	resetErr error

	fetchCalls int
	mergeCalls int
	resetCalls int
	mutations  int
}

func (f *fakeGit) Head(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeGit) RevParse(path, rev string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev == "HEAD" {
		return f.head, nil
	}
	return f.remoteHead, nil
}

func (f *fakeGit) IsClean(path string) (bool, error) { return true, nil }

func (f *fakeGit) RemoteURL(path, remote string) (string, error) {
	return f.remoteURL, nil
}

func (f *fakeGit) HashObject(path, file string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.manifestHashes) == 0 {
		return "", nil
	}
	h := f.manifestHashes[0]
	f.manifestHashes = f.manifestHashes[1:]
	return h, nil
}

func (f *fakeGit) CommitsBehind(path, upstream string) (int, error) {
	return f.behind, nil
}

func (f *fakeGit) RecentSubjects(path, revRange string, limit int) ([]string, error) {
	return f.subjects, nil
}

func (f *fakeGit) DiffNameOnly(path, from, to string) ([]string, error) {
	return f.files, nil
}

func (f *fakeGit) Fetch(ctx context.Context, path, remote, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return f.fetchErr
}

func (f *fakeGit) MergeFFOnly(path, rev string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeCalls++
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.head = rev
	f.mutations++
	return nil
}

func (f *fakeGit) ResetHard(path, rev string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	if f.resetErr != nil {
		return f.resetErr
	}
	f.head = rev
	f.mutations++
	return nil
}

// fakeRunner records dependency-install invocations.
type fakeRunner struct {
	err   error
	calls int
}

func (r *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	r.calls++
	return r.err
}

// fakeChecker / fakeApplier / fakeReplacer drive the orchestrator tests.
type fakeChecker struct {
	result CheckResult
	calls  int
}

func (c *fakeChecker) CheckForUpdates(ctx context.Context) CheckResult {
	c.calls++
	return c.result
}

type fakeApplier struct {
	result  ApplyResult
	calls   int
	started chan struct{} // closed once Apply begins, when non-nil
	release chan struct{} // Apply blocks on this, when non-nil
}

func (a *fakeApplier) Apply(ctx context.Context) ApplyResult {
	a.calls++
	if a.started != nil {
		close(a.started)
		a.started = nil
	}
	if a.release != nil {
		<-a.release
	}
	return a.result
}

type fakeReplacer struct {
	err   error
	calls int
}

func (r *fakeReplacer) Replace() error {
	r.calls++
	return r.err
}
