package portal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/metrics"
	"github.com/lbogdanov/nixieclock/internal/store"
)

//go:embed static
var staticFiles embed.FS

// StaticMaxAge is the Cache-Control max-age of the embedded UI.
const StaticMaxAge = 24 * time.Hour

// maxFormSize bounds a settings POST body.
const maxFormSize = 8 << 10

// Server is the configuration portal.
//
// Handlers run on net/http goroutines. They only bump the activity counter
// and go through the store, which serializes its own access.
type Server struct {
	store    *store.Store
	metrics  *metrics.Recorder
	router   *chi.Mux
	server   *http.Server
	activity atomic.Uint64

	listener net.Listener
	served   chan error
}

// NewServer creates a portal serving st on addr.
func NewServer(addr string, st *store.Store, rec *metrics.Recorder) *Server {
	s := &Server{
		store:   st,
		metrics: rec,
		router:  chi.NewRouter(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.countActivity)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.GetHead)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handlePostSettings)
	})

	// The firmware update UI is not served by this portal.
	s.router.Get("/update", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found: /update", http.StatusNotFound)
	})

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.With(cacheFor(StaticMaxAge)).Get("/*", http.FileServer(http.FS(assets)).ServeHTTP)
}

// countActivity counts every request, whatever its method, path or outcome.
func (s *Server) countActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.activity.Add(1)
		s.metrics.IncPortalRequest()
		logging.LogPortalRequest(r.RemoteAddr, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func cacheFor(d time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("max-age=%d", int(d.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}

// Handler returns the portal router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Activity returns the number of requests seen so far.
func (s *Server) Activity() uint64 {
	return s.activity.Load()
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("portal listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.served = make(chan error, 1)

	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.served <- err
	}()

	logging.Info("Portal started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown stops accepting requests and waits for in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.served == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("portal shutdown: %w", err)
	}
	err := <-s.served
	s.served = nil
	logging.Info("Portal stopped")
	return err
}
