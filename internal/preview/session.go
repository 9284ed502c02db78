// Package preview runs the serve mode: a filesystem watch session that
// rebuilds the site on change, an HTTP server over the output tree and an
// SSE channel that tells browsers when to reload. Rebuild cycles are
// single-flight; change bursts coalesce through a debouncer and events
// arriving mid-cycle queue exactly one follow-up cycle.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/memoize/internal/build"
	"git.home.luguber.info/inful/memoize/internal/config"
	"git.home.luguber.info/inful/memoize/internal/logfields"
	"git.home.luguber.info/inful/memoize/internal/metrics"
	"git.home.luguber.info/inful/memoize/internal/site"
)

const shutdownGrace = 5 * time.Second

// Evicter drops cached per-path state when the underlying files change.
// gitmeta.CachedSource satisfies it.
type Evicter interface {
	Evict(rels ...string)
	Purge()
}

// Session owns one serve run: initial build, watcher, rebuild worker, HTTP
// server and livereload hub.
type Session struct {
	cfg            *config.Config
	pipeline       *build.Pipeline
	recorder       metrics.Recorder
	evicter        Evicter
	metricsHandler http.Handler

	hub       *Hub
	watcher   *watcher
	debounce  *debouncer
	changes   *changeSet
	rebuildCh chan struct{}
	reconcile atomic.Bool

	mu        sync.Mutex
	lastGraph *site.Graph
	running   bool
	pending   bool
}

func NewSession(cfg *config.Config, pipeline *build.Pipeline) *Session {
	return &Session{
		cfg:       cfg,
		pipeline:  pipeline,
		recorder:  metrics.NoopRecorder{},
		changes:   newChangeSet(),
		rebuildCh: make(chan struct{}, 1),
	}
}

// WithRecorder sets the metrics recorder for the hub's client gauge.
func (s *Session) WithRecorder(rec metrics.Recorder) *Session {
	if rec != nil {
		s.recorder = rec
	}
	return s
}

// WithEvicter sets the cache to invalidate for paths changed each cycle.
func (s *Session) WithEvicter(e Evicter) *Session {
	s.evicter = e
	return s
}

// WithMetricsHandler mounts h at /metrics on the preview server.
func (s *Session) WithMetricsHandler(h http.Handler) *Session {
	s.metricsHandler = h
	return s
}

// Run builds once, then serves and watches until ctx is canceled. A failed
// initial build is logged, not fatal: the server comes up anyway and the
// next change or reconcile tick retries.
func (s *Session) Run(ctx context.Context) error {
	absSource, err := filepath.Abs(s.cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to resolve source dir: %w", err)
	}
	if st, statErr := os.Stat(absSource); statErr != nil || !st.IsDir() {
		return fmt.Errorf("source dir not found or not a directory: %s", absSource)
	}
	absOutput, err := filepath.Abs(s.cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to resolve output dir: %w", err)
	}
	watchDir := s.cfg.Watch.Dir
	if watchDir == "" {
		watchDir = s.cfg.Source
	}
	absWatch, err := filepath.Abs(watchDir)
	if err != nil {
		return fmt.Errorf("failed to resolve watch dir: %w", err)
	}
	if st, statErr := os.Stat(absWatch); statErr != nil || !st.IsDir() {
		return fmt.Errorf("watch dir not found or not a directory: %s", absWatch)
	}

	s.hub = NewHub(s.recorder)

	res, buildErr := s.pipeline.Build(ctx, build.Options{Trigger: metrics.TriggerInitial})
	if buildErr != nil {
		slog.Error("Initial build failed", logfields.Error(buildErr))
	}
	s.record(res)

	s.watcher, err = newWatcher(absWatch, absSource, absOutput)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	s.debounce = newDebouncer(s.cfg.Watch.Debounce, s.requestRebuild)

	server := NewServer(absOutput, s.hub, s.metricsHandler)
	httpServer := &http.Server{Addr: s.cfg.Serve.Addr(), Handler: server.Router()}

	var rec *reconciler
	if s.cfg.Watch.ReconcileInterval > 0 {
		rec, err = newReconciler(s.cfg.Watch.ReconcileInterval, s.requestReconcile)
		if err != nil {
			_ = s.watcher.Close()
			return err
		}
		rec.Start()
	}

	slog.Info("Preview server listening",
		logfields.Addr(s.cfg.Serve.Addr()),
		logfields.Source(absSource),
		logfields.Output(absOutput))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.worker(gCtx)
		return nil
	})
	g.Go(func() error {
		s.watchLoop(gCtx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("preview server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down preview server")
		s.debounce.Stop()
		if rec != nil {
			if err := rec.Stop(); err != nil {
				slog.Warn("Reconcile scheduler shutdown error", logfields.Error(err))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown error", logfields.Error(err))
		}
		s.hub.Shutdown()
		_ = s.watcher.Close()
		return nil
	})
	return g.Wait()
}

// watchLoop turns filesystem events into change records and debounced
// rebuild requests.
func (s *Session) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *Session) handleEvent(ev fsnotify.Event) {
	if s.watcher.ignore(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = s.watcher.addRecursive(ev.Name)
		}
	}
	rel, ok := s.watcher.rel(ev.Name)
	if !ok {
		// Watched but outside the source root; no page to scope it to.
		s.changes.forceStructural()
		s.debounce.Trigger()
		return
	}
	slog.Debug("File change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))
	s.changes.add(rel, structuralOp(ev.Op))
	s.debounce.Trigger()
}

func (s *Session) requestRebuild() {
	select {
	case s.rebuildCh <- struct{}{}:
	default:
	}
}

func (s *Session) requestReconcile() {
	s.reconcile.Store(true)
	s.requestRebuild()
}

// worker runs rebuild cycles one at a time. Requests arriving mid-cycle set
// the pending flag and queue exactly one follow-up.
func (s *Session) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.rebuildCh:
			s.mu.Lock()
			if s.running {
				s.pending = true
				s.mu.Unlock()
				continue
			}
			s.running = true
			s.mu.Unlock()

			s.rebuild(ctx)

			s.mu.Lock()
			s.running = false
			again := s.pending
			s.pending = false
			s.mu.Unlock()
			if again {
				s.requestRebuild()
			}
		}
	}
}

// rebuild drains the change batch, decides the cycle scope and runs it.
// Non-structural batches with a previous graph rebuild only the affected
// closure; batches whose content fingerprints all match are dropped.
func (s *Session) rebuild(ctx context.Context) {
	paths, structural := s.changes.take()
	reconcile := s.reconcile.Swap(false)
	graph := s.graphSnapshot()

	opts := build.Options{Trigger: metrics.TriggerWatch}
	switch {
	case reconcile:
		opts.Trigger = metrics.TriggerReconcile
		if s.evicter != nil {
			s.evicter.Purge()
		}
	case structural || graph == nil || !s.cfg.Watch.Incremental:
		if s.evicter != nil {
			s.evicter.Evict(paths...)
		}
	case len(paths) == 0:
		return
	case noopBatch(graph, paths):
		slog.Debug("Content fingerprints unchanged, skipping rebuild", logfields.Pages(len(paths)))
		return
	default:
		opts.Scope = affectedSet(graph, paths)
		if s.evicter != nil {
			s.evicter.Evict(paths...)
		}
	}

	res, err := s.pipeline.Build(ctx, opts)
	s.record(res)
	if err != nil {
		slog.Warn("Rebuild failed", logfields.Error(err))
		return
	}
	s.hub.Broadcast(strconv.FormatInt(time.Now().UnixNano(), 10))
}

// affectedSet is the changed paths plus every page holding a resolved link
// to one of them.
func affectedSet(graph *site.Graph, paths []string) map[string]bool {
	scope := make(map[string]bool, len(paths))
	for _, rel := range paths {
		scope[rel] = true
		for _, src := range graph.Backlinks(rel) {
			scope[src] = true
		}
	}
	return scope
}

func (s *Session) record(res *build.Result) {
	if res == nil || res.Graph == nil {
		return
	}
	s.mu.Lock()
	s.lastGraph = res.Graph
	s.mu.Unlock()
}

func (s *Session) graphSnapshot() *site.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGraph
}
