package gitmeta

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedSource memoizes lookups for the lifetime of a serve session, where
// the same pages are re-rendered across rebuild cycles. Definitive answers
// are cached, including “no commit touches this file”; timeouts are not, so
// a momentarily slow repository gets retried on the next cycle.
type CachedSource struct {
	src   Source
	cache *lru.Cache[string, lookupResult]
}

type lookupResult struct {
	commit Commit
	err    error
}

// NewCached wraps src with an LRU of the given capacity.
func NewCached(src Source, size int) (*CachedSource, error) {
	cache, err := lru.New[string, lookupResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return &CachedSource{src: src, cache: cache}, nil
}

func (c *CachedSource) Lookup(ctx context.Context, rel string) (Commit, error) {
	if cached, ok := c.cache.Get(rel); ok {
		return cached.commit, cached.err
	}

	commit, err := c.src.Lookup(ctx, rel)
	if cacheable(err) {
		c.cache.Add(rel, lookupResult{commit: commit, err: err})
	}
	return commit, err
}

func cacheable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUnavailable)
}

// Evict drops cached results for the given source-relative paths. Called
// with each rebuild batch so a commit made between cycles is picked up.
func (c *CachedSource) Evict(rels ...string) {
	for _, rel := range rels {
		c.cache.Remove(rel)
	}
}

// Purge empties the cache. Reconcile passes call this to shed entries for
// deleted files.
func (c *CachedSource) Purge() {
	c.cache.Purge()
}
