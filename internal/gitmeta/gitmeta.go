// Package gitmeta resolves the last commit touching a source file so pages
// can carry a provenance footer. Every failure mode folds into
// ErrUnavailable: a source tree outside any repository is a normal
// configuration, not an error worth failing a build over.
package gitmeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/memoize/internal/logfields"
)

// ErrUnavailable signals that commit metadata cannot be produced for a path.
// Callers render the page without a footer and move on.
var ErrUnavailable = errors.New("git metadata unavailable")

// Commit is the most recent commit touching one source file. Identity fields
// carry the committer, not the author.
type Commit struct {
	Hash   string
	Date   string // Committer date, YYYY-MM-DD
	Name   string // Committer name
	Email  string // Committer email
	WebURL string // HTTPS link to the commit, empty when the origin remote does not map
}

// Short returns the abbreviated hash used in page footers and logs.
func (c Commit) Short() string {
	if len(c.Hash) < 8 {
		return c.Hash
	}
	return c.Hash[:8]
}

// Source yields commit metadata for source-relative paths.
type Source interface {
	Lookup(ctx context.Context, rel string) (Commit, error)
}

// Disabled is a Source that always reports ErrUnavailable. Used when git
// integration is switched off or no repository was found, so the pipeline
// never nil-checks its metadata source.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (Commit, error) {
	return Commit{}, ErrUnavailable
}

// RepoSource reads commit metadata from the repository enclosing the source
// root. Lookups are bounded by a per-call timeout so a huge history can slow
// a build down but never wedge it.
type RepoSource struct {
	repo    *git.Repository
	prefix  string // Source root relative to the worktree root, "" when equal
	baseURL string // Commit link base ending in "/commit/", "" when unmapped
	timeout time.Duration
}

// Open locates the repository enclosing root, walking parent directories the
// way git itself does. Returns ErrUnavailable when there is none.
func Open(root string, timeout time.Duration) (*RepoSource, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	repo, err := git.PlainOpenWithOptions(absRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("No repository found for source tree", logfields.Source(absRoot), logfields.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	prefix, err := filepath.Rel(wt.Filesystem.Root(), absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if prefix == "." {
		prefix = ""
	}

	s := &RepoSource{
		repo:    repo,
		prefix:  filepath.ToSlash(prefix),
		baseURL: originCommitBase(repo),
		timeout: timeout,
	}
	slog.Debug("Repository opened for commit metadata",
		logfields.Source(absRoot),
		slog.String("prefix", s.prefix),
		slog.String("commit_base", s.baseURL))
	return s, nil
}

// Lookup returns the most recent commit touching rel, bounded by the
// configured timeout. Untracked files and empty histories report
// ErrUnavailable.
func (s *RepoSource) Lookup(ctx context.Context, rel string) (Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		commit Commit
		err    error
	}
	// Buffered so the walker never blocks after the deadline fires.
	ch := make(chan result, 1)
	go func() {
		commit, err := s.lookup(rel)
		ch <- result{commit, err}
	}()

	select {
	case r := <-ch:
		return r.commit, r.err
	case <-ctx.Done():
		slog.Debug("Commit lookup timed out", logfields.Path(rel), logfields.Error(ctx.Err()))
		return Commit{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (s *RepoSource) lookup(rel string) (Commit, error) {
	target := rel
	if s.prefix != "" {
		target = path.Join(s.prefix, rel)
	}

	iter, err := s.repo.Log(&git.LogOptions{
		FileName: &target,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return Commit{}, fmt.Errorf("%w: log %s: %v", ErrUnavailable, target, err)
	}
	defer iter.Close()

	latest, err := iter.Next()
	if err != nil {
		return Commit{}, fmt.Errorf("%w: no commit touches %s", ErrUnavailable, target)
	}

	commit := Commit{
		Hash:  latest.Hash.String(),
		Date:  latest.Committer.When.Format("2006-01-02"),
		Name:  latest.Committer.Name,
		Email: latest.Committer.Email,
	}
	if s.baseURL != "" {
		commit.WebURL = s.baseURL + commit.Hash
	}
	return commit, nil
}
