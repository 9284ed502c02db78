package preview

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/memoize/internal/build"
	"git.home.luguber.info/inful/memoize/internal/config"
	"git.home.luguber.info/inful/memoize/internal/metrics"
)

// countingRecorder counts rebuild cycles per trigger through the pipeline's
// metrics hook.
type countingRecorder struct {
	metrics.NoopRecorder
	initial   atomic.Int32
	watch     atomic.Int32
	reconcile atomic.Int32
}

func (c *countingRecorder) IncRebuild(trigger metrics.Trigger) {
	switch trigger {
	case metrics.TriggerInitial:
		c.initial.Add(1)
	case metrics.TriggerWatch:
		c.watch.Add(1)
	case metrics.TriggerReconcile:
		c.reconcile.Add(1)
	}
}

func sessionConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source = t.TempDir()
	cfg.Output = filepath.Join(t.TempDir(), "out")
	cfg.Jobs = 2
	cfg.Watch.Debounce = 60 * time.Millisecond
	cfg.Git.Enabled = false
	return cfg
}

func writeSource(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	full := filepath.Join(cfg.Source, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// primedSession builds once and records the graph, leaving the session ready
// for direct rebuild calls.
func primedSession(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s := NewSession(cfg, build.New(cfg))
	s.hub = NewHub(nil)
	t.Cleanup(s.hub.Shutdown)

	res, err := s.pipeline.Build(t.Context(), build.Options{Trigger: metrics.TriggerInitial})
	require.NoError(t, err)
	require.Equal(t, build.OutcomeSuccess, res.Report.Outcome)
	s.record(res)
	return s
}

func TestAffectedSetIncludesBacklinks(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "hub.md", "# Hub\n")
	writeSource(t, cfg, "a.md", "# A\n\n[to hub](hub.md)\n")
	writeSource(t, cfg, "b.md", "# B\n")

	s := primedSession(t, cfg)

	scope := affectedSet(s.graphSnapshot(), []string{"hub.md"})
	require.True(t, scope["hub.md"])
	require.True(t, scope["a.md"], "linking page must be in the affected set")
	require.False(t, scope["b.md"])
}

func TestNoopBatch(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "a.md", "---\ntitle: A\n---\n# A\n\nbody\n")
	writeSource(t, cfg, "pic.svg", "<svg/>")

	s := primedSession(t, cfg)
	graph := s.graphSnapshot()

	require.True(t, noopBatch(graph, []string{"a.md"}), "untouched page")

	// Rewriting identical bytes is still a no-op.
	writeSource(t, cfg, "a.md", "---\ntitle: A\n---\n# A\n\nbody\n")
	require.True(t, noopBatch(graph, []string{"a.md"}))

	writeSource(t, cfg, "a.md", "---\ntitle: A\n---\n# A\n\nchanged\n")
	require.False(t, noopBatch(graph, []string{"a.md"}), "changed body")

	require.False(t, noopBatch(graph, []string{"pic.svg"}), "assets have no fingerprint")
	require.False(t, noopBatch(graph, []string{"ghost.md"}), "unknown path")
}

func TestRebuildIncrementalScope(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "a.md", "# A v1\n")
	writeSource(t, cfg, "b.md", "# B v1\n")

	s := primedSession(t, cfg)

	// Both sources change on disk, but only a.md is in the batch; the other
	// page's output must stay stale.
	writeSource(t, cfg, "a.md", "# A v2\n")
	writeSource(t, cfg, "b.md", "# B v2\n")
	s.changes.add("a.md", false)
	s.rebuild(t.Context())

	require.Contains(t, readOutput(t, cfg, "a.html"), "A v2")
	require.Contains(t, readOutput(t, cfg, "b.html"), "B v1")
	require.NotEmpty(t, s.hub.lastToken, "successful cycle must broadcast")
}

func TestRebuildBacklinkClosure(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "hub.md", "# Hub v1\n")
	writeSource(t, cfg, "linker.md", "# Linker v1\n\n[hub](hub.md)\n")

	s := primedSession(t, cfg)

	writeSource(t, cfg, "hub.md", "# Hub v2\n")
	writeSource(t, cfg, "linker.md", "# Linker v2\n\n[hub](hub.md)\n")
	s.changes.add("hub.md", false)
	s.rebuild(t.Context())

	require.Contains(t, readOutput(t, cfg, "hub.html"), "Hub v2")
	require.Contains(t, readOutput(t, cfg, "linker.html"), "Linker v2",
		"backlinking page rebuilds with its target")
}

func TestRebuildSkipsFingerprintNoop(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "a.md", "# A\n")

	s := primedSession(t, cfg)

	// Same bytes rewritten: the batch carries no content change.
	writeSource(t, cfg, "a.md", "# A\n")
	s.changes.add("a.md", false)
	s.rebuild(t.Context())

	require.Empty(t, s.hub.lastToken, "no-op batch must not broadcast")
}

func TestRebuildStructuralBatchRebuildsEverything(t *testing.T) {
	cfg := sessionConfig(t)
	writeSource(t, cfg, "a.md", "# A v1\n")

	s := primedSession(t, cfg)

	// A created page plus an unreported edit: the full rebuild picks up both.
	writeSource(t, cfg, "c.md", "# C\n")
	writeSource(t, cfg, "a.md", "# A v2\n")
	s.changes.add("c.md", true)
	s.rebuild(t.Context())

	require.Contains(t, readOutput(t, cfg, "c.html"), "C")
	require.Contains(t, readOutput(t, cfg, "a.html"), "A v2")
}

func TestRebuildDisabledIncrementalGoesFull(t *testing.T) {
	cfg := sessionConfig(t)
	cfg.Watch.Incremental = false
	writeSource(t, cfg, "a.md", "# A v1\n")
	writeSource(t, cfg, "b.md", "# B v1\n")

	s := primedSession(t, cfg)

	writeSource(t, cfg, "a.md", "# A v2\n")
	writeSource(t, cfg, "b.md", "# B v2\n")
	s.changes.add("a.md", false)
	s.rebuild(t.Context())

	require.Contains(t, readOutput(t, cfg, "b.html"), "B v2",
		"with incremental off every page rebuilds")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestSessionRunDebouncesWatchEvents(t *testing.T) {
	cfg := sessionConfig(t)
	cfg.Serve.Port = freePort(t)
	writeSource(t, cfg, "a.md", "# A v0\n")

	counter := &countingRecorder{}
	s := NewSession(cfg, build.New(cfg).WithRecorder(counter))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The server only comes up after the initial build and the watcher are
	// in place.
	healthz := fmt.Sprintf("http://%s/healthz", cfg.Serve.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthz)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, int32(1), counter.initial.Load())

	// Three rapid edits inside one debounce window.
	for i := 1; i <= 3; i++ {
		writeSource(t, cfg, "a.md", fmt.Sprintf("# A v%d\n", i))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return counter.watch.Load() == 1 },
		3*time.Second, 10*time.Millisecond)

	// The burst spent, no extra cycle may follow.
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(1), counter.watch.Load())
	require.Contains(t, readOutput(t, cfg, "a.html"), "A v3")

	// Writes under excluded components never trigger a cycle.
	writeSource(t, cfg, "_drafts/wip.md", "# WIP\n")
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(1), counter.watch.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down")
	}
}
