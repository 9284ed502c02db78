package preview

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the output tree with livereload injection. It holds no build
// state; it reads whatever the last cycle wrote, so a broken rebuild keeps
// the previous pages browsable.
type Server struct {
	outputDir string
	hub       *Hub
	router    chi.Router
}

// NewServer builds the preview router. metricsHandler is mounted at /metrics
// when non-nil.
func NewServer(outputDir string, hub *Hub, metricsHandler http.Handler) *Server {
	s := &Server{outputDir: outputDir, hub: hub}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(Script))
	})
	r.Get("/events", hub.ServeHTTP)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Get("/*", s.serveFile)

	s.router = r
	return s
}

// Router exposes the handler for mounting into an http.Server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rel, ok := sanitizePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if rel == "" {
		rel = "index.html"
	}

	full := filepath.Join(s.outputDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		// Redirect so relative links on the index page resolve against the
		// directory, not its parent.
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		rel = path.Join(rel, "index.html")
		full = filepath.Join(s.outputDir, filepath.FromSlash(rel))
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	// The preview must always reflect the latest build.
	w.Header().Set("Cache-Control", "no-store")

	if !strings.HasSuffix(rel, ".html") {
		http.ServeFile(w, r, full)
		return
	}

	page, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(injectLiveReload(page))
}
