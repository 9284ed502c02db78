package site

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/memoize/internal/source"
)

// isAbsoluteURL reports whether a link destination leaves relative-path
// space: a URI scheme ("https:", "mailto:") or a protocol-relative "//host"
// prefix. Such destinations pass through resolution untouched.
func isAbsoluteURL(dest string) bool {
	if strings.HasPrefix(dest, "//") {
		return true
	}
	colon := strings.IndexByte(dest, ':')
	if colon <= 0 {
		return false
	}
	// RFC 3986 scheme: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )
	for i, r := range dest[:colon] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// resolveLink resolves one destination against the page's directory and
// records the rewrite, if any, in page.Resolved. Missing targets produce a
// warning plus a best-effort blind ".md" → ".html" fallback so the build
// never hard-fails on a dangling link.
func (g *Graph) resolveLink(page *Page, dest string) {
	if dest == "" || strings.HasPrefix(dest, "#") || isAbsoluteURL(dest) {
		return
	}
	if _, seen := page.Resolved[dest]; seen {
		return
	}

	target, fragment, hasFragment := strings.Cut(dest, "#")
	if target == "" {
		return
	}

	var joined string
	if strings.HasPrefix(target, "/") {
		joined = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		joined = path.Join(path.Dir(page.Entry.RelPath), target)
	}
	// A cleaned path escaping the source root is not ours to judge.
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return
	}

	entry, found := g.entries[joined]
	if found && entry.Kind != source.KindPage {
		// Assets and directories mirror verbatim, the link is already right.
		return
	}
	if found && strings.HasSuffix(target, ".md") {
		rewritten := strings.TrimSuffix(target, ".md") + ".html"
		if hasFragment {
			rewritten += "#" + fragment
		}
		if rewritten != dest {
			page.Resolved[dest] = rewritten
		}
		g.backlinks[joined] = append(g.backlinks[joined], page.Entry.RelPath)
		return
	}

	g.warnings = append(g.warnings, LinkWarning{Page: page.Entry.RelPath, Target: dest})
	if strings.HasSuffix(target, ".md") {
		fallback := strings.TrimSuffix(target, ".md") + ".html"
		if hasFragment {
			fallback += "#" + fragment
		}
		page.Resolved[dest] = fallback
	}
}
