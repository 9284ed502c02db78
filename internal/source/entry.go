package source

import "strings"

// Kind classifies a scanned source entry.
type Kind int

const (
	KindPage Kind = iota
	KindAsset
	KindDir
	KindExcluded
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindAsset:
		return "asset"
	case KindDir:
		return "dir"
	case KindExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Entry represents one non-excluded filesystem entry under the source root.
type Entry struct {
	Path    string // Absolute path to the entry
	RelPath string // Slash-separated path relative to the source root
	Kind    Kind
}

// Excluded reports whether a single path component is excluded from the
// build. Components starting with "." are hidden, components starting with
// "_" are reserved (the default output directory is one of them). The bare
// "." component is exempt so the current directory works as a source root.
func Excluded(name string) bool {
	return (name != "." && strings.HasPrefix(name, ".")) || strings.HasPrefix(name, "_")
}

// Classify returns the kind for a directory entry with the given name.
// The ".md" suffix check is case-sensitive: "NOTES.MD" is an asset.
func Classify(name string, isDir bool) Kind {
	if Excluded(name) {
		return KindExcluded
	}
	if isDir {
		return KindDir
	}
	if strings.HasSuffix(name, ".md") {
		return KindPage
	}
	return KindAsset
}
