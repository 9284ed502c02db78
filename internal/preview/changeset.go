package preview

import (
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// changeSet accumulates filesystem changes between rebuild cycles. The watch
// loop adds under its own goroutine while the rebuild worker drains with
// take, so every access is lock-guarded.
type changeSet struct {
	mu         sync.Mutex
	paths      map[string]struct{}
	structural bool
}

func newChangeSet() *changeSet {
	return &changeSet{paths: make(map[string]struct{})}
}

// add records one changed source-relative path. Structural changes (created,
// removed or renamed entries) force the next cycle to rebuild everything
// because they alter the set of output paths and link targets.
func (c *changeSet) add(rel string, structural bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[rel] = struct{}{}
	if structural {
		c.structural = true
	}
}

// forceStructural marks the pending batch structural without naming a path.
// Used for events that cannot be mapped to a source-relative path.
func (c *changeSet) forceStructural() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structural = true
}

// take drains the accumulated batch and resets the set for the next one.
func (c *changeSet) take() (paths []string, structural bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths = make([]string, 0, len(c.paths))
	for rel := range c.paths {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	structural = c.structural
	c.paths = make(map[string]struct{})
	c.structural = false
	return paths, structural
}

// structuralOp reports whether a filesystem op changes the shape of the
// source tree rather than just file contents.
func structuralOp(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}
