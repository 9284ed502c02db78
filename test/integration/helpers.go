package integration

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/memoize/internal/build"
	"git.home.luguber.info/inful/memoize/internal/config"
	"git.home.luguber.info/inful/memoize/internal/metrics"
)

// writeTree materializes a fixture tree under root. Keys are slash-separated
// relative paths; a key ending in "/" creates an empty directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		target := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(target, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	}
}

// buildConfig returns a config pointing at the given trees with git metadata
// off, so the output depends on nothing but the source bytes.
func buildConfig(t *testing.T, source, output string, jobs int) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source = source
	cfg.Output = output
	cfg.Jobs = jobs
	cfg.Git.Enabled = false
	return cfg
}

// runBuild executes one build cycle and fails the test on fatal errors.
// Per-path failures stay in the report for the caller to assert on.
func runBuild(t *testing.T, cfg *config.Config, opts build.Options) *build.Result {
	t.Helper()
	if opts.Trigger == "" {
		opts.Trigger = metrics.TriggerInitial
	}
	res, err := build.New(cfg).Build(context.Background(), opts)
	require.NoError(t, err, "build should not fail fatally")
	require.NotNil(t, res.Report)
	return res
}

// listTree returns every entry under root as sorted slash-relative paths,
// directories marked with a trailing "/". The root itself is omitted.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(entries)
	return entries
}

// readOutput reads one generated file as a string.
func readOutput(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// treeContents maps every file under root to its content, keyed by
// slash-relative path. Directories are omitted.
func treeContents(t *testing.T, root string) map[string]string {
	t.Helper()
	contents := make(map[string]string)
	for _, rel := range listTree(t, root) {
		if strings.HasSuffix(rel, "/") {
			continue
		}
		contents[rel] = readOutput(t, root, rel)
	}
	return contents
}
