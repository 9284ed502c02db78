package preview

import (
	"strings"

	"git.home.luguber.info/inful/memoize/internal/source"
)

// sanitizePath validates a request path and reduces it to a slash-relative
// path that is safe to join onto the output root. Leading slashes and "."
// segments are stripped; "..", drive-prefix lookalikes and excluded names
// reject the whole path. The empty string (with ok true) means the root was
// requested.
func sanitizePath(p string) (rel string, ok bool) {
	var parts []string
	for _, comp := range strings.Split(p, "/") {
		switch {
		case comp == "" || comp == ".":
			continue
		case comp == "..":
			return "", false
		case strings.ContainsAny(comp, ":\\"):
			return "", false
		case source.Excluded(comp):
			// Excluded names never exist in the output tree; a request
			// naming one is probing, not browsing.
			return "", false
		default:
			parts = append(parts, comp)
		}
	}
	return strings.Join(parts, "/"), true
}
