package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init", "-b", "main"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	require.NoError(t, exec.Command("git", "-C", dir, "add", name).Run())
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "-m", msg).Run())
}

// cloneTestRepo clones src into a new temp dir and returns it.
func cloneTestRepo(t *testing.T, src string) string {
	t.Helper()
	dst := t.TempDir()
	require.NoError(t, exec.Command("git", "clone", src, dst).Run())
	require.NoError(t, exec.Command("git", "-C", dst, "config", "user.email", "test@test.com").Run())
	require.NoError(t, exec.Command("git", "-C", dst, "config", "user.name", "Test").Run())
	return dst
}

func TestHead(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "hello", "init")

	c := NewClient()
	head, err := c.Head(dir)
	require.NoError(t, err)
	assert.Len(t, head, 40)

	viaRevParse, err := c.RevParse(dir, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, viaRevParse, head)
}

func TestHead_NotARepo(t *testing.T) {
	c := NewClient()
	_, err := c.Head(t.TempDir())
	assert.Error(t, err)
}

func TestIsClean(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "hello", "init")

	c := NewClient()
	clean, err := c.IsClean(dir)
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("dirty"), 0o644))
	clean, err = c.IsClean(dir)
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestCommitsBehind(t *testing.T) {
	origin := t.TempDir()
	initTestRepo(t, origin)
	commitFile(t, origin, "a.txt", "v1", "init")

	local := cloneTestRepo(t, origin)
	commitFile(t, origin, "a.txt", "v2", "second")
	commitFile(t, origin, "b.txt", "v1", "third")

	c := NewClient()
	require.NoError(t, c.Fetch(context.Background(), local, "origin", "main"))

	behind, err := c.CommitsBehind(local, "origin/main")
	require.NoError(t, err)
	assert.Equal(t, 2, behind)
}

func TestFetch_NoRemote(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "v1", "init")

	c := NewClient()
	err := c.Fetch(context.Background(), dir, "origin", "main")
	require.Error(t, err)

	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
	assert.NotEqual(t, 0, cmdErr.ExitCode)
}

func TestMergeFFOnly_ThenResetHardFallback(t *testing.T) {
	origin := t.TempDir()
	initTestRepo(t, origin)
	commitFile(t, origin, "a.txt", "v1", "init")

	local := cloneTestRepo(t, origin)
	commitFile(t, origin, "a.txt", "v2", "second")

	c := NewClient()
	require.NoError(t, c.Fetch(context.Background(), local, "origin", "main"))

	// Clean clone fast-forwards.
	require.NoError(t, c.MergeFFOnly(local, "origin/main"))
	head, err := c.Head(local)
	require.NoError(t, err)
	remote, err := c.RevParse(local, "origin/main")
	require.NoError(t, err)
	assert.Equal(t, remote, head)

	// Diverged local history cannot fast-forward; hard reset recovers.
	commitFile(t, local, "local.txt", "x", "local divergence")
	commitFile(t, origin, "a.txt", "v3", "third")
	require.NoError(t, c.Fetch(context.Background(), local, "origin", "main"))
	assert.Error(t, c.MergeFFOnly(local, "origin/main"))

	require.NoError(t, c.ResetHard(local, "origin/main"))
	head, err = c.Head(local)
	require.NoError(t, err)
	remote, err = c.RevParse(local, "origin/main")
	require.NoError(t, err)
	assert.Equal(t, remote, head)
	_, statErr := os.Stat(filepath.Join(local, "local.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHashObject(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "go.mod", "module example\n", "init")

	c := NewClient()
	h1, err := c.HashObject(dir, "go.mod")
	require.NoError(t, err)
	assert.Len(t, h1, 40)

	// Unchanged file hashes identically.
	h2, err := c.HashObject(dir, "go.mod")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Missing file yields empty hash, not an error.
	h3, err := c.HashObject(dir, "nope.txt")
	require.NoError(t, err)
	assert.Empty(t, h3)
}

func TestDiffNameOnly(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "v1", "init")

	c := NewClient()
	from, err := c.Head(dir)
	require.NoError(t, err)

	commitFile(t, dir, "a.txt", "v2", "change a")
	commitFile(t, dir, "b.txt", "v1", "add b")
	to, err := c.Head(dir)
	require.NoError(t, err)

	files, err := c.DiffNameOnly(dir, from, to)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, files)
}

func TestRecentSubjects(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "v1", "first change")
	from, err := NewClient().RevParse(dir, "HEAD")
	require.NoError(t, err)
	commitFile(t, dir, "a.txt", "v2", "second change")
	commitFile(t, dir, "a.txt", "v3", "third change")

	subjects, err := NewClient().RecentSubjects(dir, from+"..HEAD", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"third change", "second change"}, subjects)
}

func TestRemoteURL_NoRemote(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	url, err := NewClient().RemoteURL(dir, "origin")
	require.NoError(t, err)
	assert.Empty(t, url)
}
