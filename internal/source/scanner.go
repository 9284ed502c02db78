package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/memoize/internal/logfields"
)

// ScanError records a non-fatal problem encountered while walking the tree.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e ScanError) Unwrap() error { return e.Err }

// Result holds the outcome of a source tree scan.
type Result struct {
	Root    string // Absolute source root
	Entries []Entry
	Errors  []ScanError
}

// Scan walks the source root and returns every non-excluded entry beneath it.
// Excluded subtrees are pruned without being traversed. Per-entry failures
// (unreadable directories, stat errors) are collected into Result.Errors and
// the walk continues; only an unusable root aborts the scan.
func Scan(root string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	res := &Result{Root: abs}

	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				// Unreadable root: nothing partial to produce.
				return err
			}
			res.Errors = append(res.Errors, ScanError{Path: path, Err: err})
			return nil
		}
		if path == abs {
			// The root itself is not an entry and is exempt from exclusion.
			return nil
		}

		kind := Classify(d.Name(), d.IsDir())
		if kind == KindExcluded {
			slog.Debug("Skipping excluded entry", logfields.Path(path))
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(abs, path)
		if relErr != nil {
			res.Errors = append(res.Errors, ScanError{Path: path, Err: relErr})
			return nil
		}

		res.Entries = append(res.Entries, Entry{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Kind:    kind,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk source root: %w", walkErr)
	}

	slog.Debug("Source scan complete",
		logfields.Source(abs),
		slog.Int("entries", len(res.Entries)),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}
