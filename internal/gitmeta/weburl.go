package gitmeta

import (
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
)

// originCommitBase derives the commit link base from the repository's origin
// remote. Empty when there is no origin or its URL form is not recognized.
func originCommitBase(repo *git.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return CommitBaseURL(urls[0])
}

// CommitBaseURL normalizes a remote URL into an HTTPS base for commit links,
// ending in "/commit/". Handles https, ssh and scp-like forms; anything else
// yields "".
//
//	git@example.com:notes/repo.git     → https://example.com/notes/repo/commit/
//	ssh://git@example.com:2222/n/r.git → https://example.com/n/r/commit/
//	https://example.com/n/r.git        → https://example.com/n/r/commit/
func CommitBaseURL(remote string) string {
	base := httpsBase(strings.TrimSpace(remote))
	if base == "" {
		return ""
	}
	return base + "/commit/"
}

func httpsBase(remote string) string {
	switch {
	case remote == "":
		return ""

	case strings.HasPrefix(remote, "http://"), strings.HasPrefix(remote, "https://"):
		u, err := url.Parse(remote)
		if err != nil || u.Host == "" {
			return ""
		}
		u.User = nil
		u.RawQuery = ""
		u.Fragment = ""
		u.Path = trimRepoPath(u.Path)
		if u.Path == "" {
			return ""
		}
		return u.String()

	case strings.HasPrefix(remote, "ssh://"):
		u, err := url.Parse(remote)
		if err != nil || u.Hostname() == "" {
			return ""
		}
		repoPath := trimRepoPath(u.Path)
		if repoPath == "" {
			return ""
		}
		return "https://" + u.Hostname() + "/" + repoPath

	default:
		// scp-like: user@host:path
		at := strings.IndexByte(remote, '@')
		colon := strings.IndexByte(remote, ':')
		if at < 0 || colon < at {
			return ""
		}
		host := remote[at+1 : colon]
		repoPath := trimRepoPath(remote[colon+1:])
		if host == "" || repoPath == "" {
			return ""
		}
		return "https://" + host + "/" + repoPath
	}
}

func trimRepoPath(p string) string {
	p = strings.Trim(p, "/")
	return strings.TrimSuffix(p, ".git")
}
