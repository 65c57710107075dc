// Package web serves the viewer display: an HTML page of current and recent
// broadcasts, the same data as JSON, an iCalendar feed and the last PNG
// snapshot of the page.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"livekeeper/internal/cache"
	"livekeeper/internal/clock"
	"livekeeper/internal/config"
	appLog "livekeeper/internal/log"
	"livekeeper/internal/repository"
)

// Options carries the collaborators that are not part of the config file.
type Options struct {
	// Cache holds the event listing between requests. Nil uses an
	// in-process cache.
	Cache cache.Cache
	// Clock defaults to the system clock shifted by cfg.ClockOffset.
	Clock clock.Clock
	// PreviewPath is the PNG served at /preview.png. Empty disables it.
	PreviewPath string
}

// Server renders the display from the event repository.
type Server struct {
	cfg         *config.Config
	repo        repository.Repository
	cache       cache.Cache
	clock       clock.Clock
	loc         *time.Location
	previewPath string
	router      *chi.Mux

	endpointMu sync.Mutex
	endpointID string
}

func NewServer(cfg *config.Config, repo repository.Repository, opts Options) *Server {
	s := &Server{
		cfg:         cfg,
		repo:        repo,
		cache:       opts.Cache,
		clock:       opts.Clock,
		loc:         resolveLocationOrLocal(cfg.Scheduling.Timezone),
		previewPath: opts.PreviewPath,
		router:      chi.NewRouter(),
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.clock == nil {
		s.clock = clock.System{Offset: cfg.ClockOffset}
	}
	s.registerRoutes()
	return s
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(accessLog)
	if origins := s.cfg.WebServer.CORSOrigins; len(origins) > 0 {
		// Ahead of basic auth: browsers send preflights without credentials.
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization"},
			AllowCredentials: s.basicAuthEnabled(),
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled")
			r.Use(s.basicAuth)
		}
		r.Get("/", s.handleIndex)
		r.Get("/calendar.ics", s.handleCalendar)
		r.Get("/preview.png", s.handlePreview)
		r.Get("/api/broadcasts", s.handleBroadcasts)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.WebServer.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.WebServer.BasicAuth.Username
	password := s.cfg.WebServer.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="livekeeper", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("request done",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).String(),
		)
	})
}

// Run serves on listen until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// endpoint resolves the ingest endpoint once and remembers it.
func (s *Server) endpoint(ctx context.Context) (string, error) {
	s.endpointMu.Lock()
	defer s.endpointMu.Unlock()
	if s.endpointID != "" {
		return s.endpointID, nil
	}
	id, err := s.repo.ResolveIngestEndpoint(ctx, s.cfg.StreamKey)
	if err != nil {
		return "", err
	}
	s.endpointID = id
	return id, nil
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
