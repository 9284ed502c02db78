package gitmeta

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository at dir with one commit per entry of files,
// in map-iteration order folded into a single commit for determinism.
func initRepo(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
		_, err = wt.Add(rel)
		require.NoError(t, err)
	}

	sig := &object.Signature{
		Name:  "Test Committer",
		Email: "committer@example.com",
		When:  time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
	}
	hash, err := wt.Commit("add notes", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return hash.String()
}

func TestOpenOutsideRepositoryIsUnavailable(t *testing.T) {
	_, err := Open(t.TempDir(), time.Second)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupReturnsLatestCommit(t *testing.T) {
	dir := t.TempDir()
	hash := initRepo(t, dir, map[string]string{"note.md": "# Note"})

	src, err := Open(dir, time.Second)
	require.NoError(t, err)

	commit, err := src.Lookup(context.Background(), "note.md")
	require.NoError(t, err)
	assert.Equal(t, hash, commit.Hash)
	assert.Equal(t, "2026-02-03", commit.Date)
	assert.Equal(t, "Test Committer", commit.Name)
	assert.Equal(t, "committer@example.com", commit.Email)
	assert.Empty(t, commit.WebURL, "no origin remote configured")
	assert.Equal(t, hash[:8], commit.Short())
}

func TestLookupUntrackedFileIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"tracked.md": "# T"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.md"), []byte("# U"), 0o644))

	src, err := Open(dir, time.Second)
	require.NoError(t, err)

	_, err = src.Lookup(context.Background(), "untracked.md")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupFromNestedSourceRoot(t *testing.T) {
	dir := t.TempDir()
	hash := initRepo(t, dir, map[string]string{"notes/inner.md": "# Inner"})

	// Source root is a subdirectory; the repository sits one level up.
	src, err := Open(filepath.Join(dir, "notes"), time.Second)
	require.NoError(t, err)

	commit, err := src.Lookup(context.Background(), "inner.md")
	require.NoError(t, err)
	assert.Equal(t, hash, commit.Hash)
}

func TestLookupBuildsCommitURLFromOrigin(t *testing.T) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@example.com:notes/memo.git"},
	})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A"), 0o644))
	_, err = wt.Add("a.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "T", Email: "t@example.com", When: time.Now()}
	hash, err := wt.Commit("add", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	src, err := Open(dir, time.Second)
	require.NoError(t, err)

	commit, err := src.Lookup(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/notes/memo/commit/"+hash.String(), commit.WebURL)
}

func TestDisabledAlwaysUnavailable(t *testing.T) {
	_, err := Disabled{}.Lookup(context.Background(), "anything.md")
	require.ErrorIs(t, err, ErrUnavailable)
}
