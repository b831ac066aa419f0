// Package webui serves the converter over HTTP: an HTML form for trying it
// by hand and two API routes mirroring the browser entry points.
//
// Routes:
//
//	GET  /                      → form
//	POST /convert               → converts the form input; renders output inline
//	POST /api/csvtojson         → text entry; body is CSV text
//	POST /api/csvtojson_binary  → binary entry; body is raw bytes
//	GET  /healthz               → liveness
//
// API responses are application/json on success with an ETag derived from the
// output. Conversion failures are 422 with the hinted message as text/plain.
package webui

import (
	"context"
	_ "embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"csvtojson/internal/host"
	"csvtojson/internal/storage"
)

// Config controls the server.
type Config struct {
	Addr string

	// Job labels metrics and archived documents.
	Job string

	// RateLimitRPS is the sustained request rate across all clients; 0
	// disables limiting. RateBurst is the bucket size.
	RateLimitRPS float64
	RateBurst    int

	// MaxBodyBytes caps request bodies; larger requests get 413.
	MaxBodyBytes int64

	// RequestTimeout bounds each request; 0 means no timeout.
	RequestTimeout time.Duration
}

// Server wraps the router and its dependencies.
type Server struct {
	cfg     Config
	router  *chi.Mux
	adapter *host.Adapter
	sink    storage.Sink
	tmpl    *template.Template
	log     *slog.Logger
	srv     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSink archives every successful API conversion to s.
func WithSink(s storage.Sink) Option {
	return func(srv *Server) { srv.sink = s }
}

// WithLogger sets the server's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.log = l
		}
	}
}

// NewServer builds a Server around adapter.
func NewServer(cfg Config, adapter *host.Adapter, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		adapter: adapter,
		tmpl:    template.Must(template.New("index").Parse(indexHTML)),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
	if s.cfg.RateLimitRPS > 0 {
		burst := s.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.router.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), burst)))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/convert", s.handleConvert)
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/"+host.TextEntry, s.handleAPI(host.TextEntry))
		r.Post("/"+host.BinaryEntry, s.handleAPI(host.BinaryEntry))
	})
}

// Handler returns the root handler; tests drive it with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return s.srv.Shutdown(shutdownCtx)
	}
}

// indexHTML is the embedded form page.
//
//go:embed index.tmpl.html
var indexHTML string
