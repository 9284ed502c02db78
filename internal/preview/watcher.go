package preview

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/memoize/internal/logfields"
	"git.home.luguber.info/inful/memoize/internal/source"
)

// watcher wraps fsnotify with recursive directory registration and the
// session's ignore rules. fsnotify watches single directories only, so every
// directory under the root is added individually and newly created ones are
// added as their create events arrive. The watch root usually equals the
// source root but may sit above it.
type watcher struct {
	fs     *fsnotify.Watcher
	root   string // absolute watch root
	source string // absolute source root, for event path conversion
	output string // absolute output root, never watched
}

func newWatcher(root, source, output string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fsw, root: root, source: source, output: output}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) Events() <-chan fsnotify.Event { return w.fs.Events }
func (w *watcher) Errors() <-chan error          { return w.fs.Errors }
func (w *watcher) Close() error                  { return w.fs.Close() }

// addRecursive registers dir and every non-ignored directory below it.
// Individual add failures are logged and skipped; a vanished subdirectory
// must not take the whole session down.
func (w *watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch registration failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// ignoreDir reports whether a directory is outside the watched scope.
func (w *watcher) ignoreDir(path string) bool {
	if w.inOutput(path) {
		return true
	}
	rel, ok := relTo(w.root, path)
	if !ok {
		return true
	}
	return hasExcludedComponent(rel)
}

// ignore reports whether an event path should be discarded: anything in the
// output tree, under an excluded component, or an editor temp file.
func (w *watcher) ignore(path string) bool {
	if w.inOutput(path) {
		return true
	}
	rel, ok := relTo(w.root, path)
	if !ok {
		return true
	}
	if hasExcludedComponent(rel) {
		return true
	}
	return tempFile(filepath.Base(path))
}

func (w *watcher) inOutput(path string) bool {
	if w.output == "" {
		return false
	}
	return path == w.output || strings.HasPrefix(path, w.output+string(filepath.Separator))
}

// rel converts an absolute event path into a slash-separated source-relative
// path. Paths outside the source root report ok false; the session treats
// those as unscoped structural changes.
func (w *watcher) rel(path string) (string, bool) {
	return relTo(w.source, path)
}

func relTo(base, path string) (string, bool) {
	r, err := filepath.Rel(base, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func hasExcludedComponent(rel string) bool {
	for _, comp := range strings.Split(rel, "/") {
		if source.Excluded(comp) {
			return true
		}
	}
	return false
}

// tempFile matches editor swap and scratch files that churn during saves.
func tempFile(base string) bool {
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	return base == ".DS_Store" || base == "Thumbs.db"
}
