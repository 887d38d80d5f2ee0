package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/state"
)

// SnapshotInterval is how often WebSocket clients are checked for changes.
const SnapshotInterval = 250 * time.Millisecond

// Injector accepts gestures with touch coordinates.
type Injector interface {
	StoreAt(code gesture.Code, p image.Point)
}

// Frames exposes the last displayed frame. May be nil.
type Frames interface {
	LastFrame() image.Image
}

// Server is the portal.
type Server struct {
	cfg      config.Portal
	store    *state.Store
	injector Injector
	frames   Frames
	metrics  http.Handler
	upgrader websocket.Upgrader

	// portalHost is the host:port of cfg.URL, accepted as an origin
	// alongside the request's own Host.
	portalHost string

	mu      sync.Mutex
	clients map[*client]struct{}
	http    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithInjector enables POST /api/gesture.
func WithInjector(i Injector) Option {
	return func(s *Server) { s.injector = i }
}

// WithFrames enables GET /api/screen.png.
func WithFrames(f Frames) Option {
	return func(s *Server) { s.frames = f }
}

// WithMetricsHandler replaces the default Prometheus handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a portal for store.
func New(cfg config.Portal, store *state.Store, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: promhttp.Handler(),
		clients: make(map[*client]struct{}),
	}
	if u, err := url.Parse(cfg.URL); err == nil {
		s.portalHost = u.Host
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.sameOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the portal's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.With(s.requireSameOrigin).Get("/ws", s.handleWebSocket)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/version", s.handleVersion)
		r.With(s.requireSameOrigin, middleware.AllowContentType("application/json")).
			Post("/gesture", s.handleGesture)
		r.Get("/screen.png", s.handleScreen)
	})
	return r
}

// sameOrigin accepts requests without an Origin header (curl, scripts) and
// browser requests from the portal's own pages.
func (s *Server) sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.portalHost != "" && strings.EqualFold(u.Host, s.portalHost)
}

func (s *Server) requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sameOrigin(r) {
			logging.Warn("Cross-origin request rejected",
				zap.String("path", r.URL.Path),
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusForbidden, "cross-origin request rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	logging.Info("Portal listening", zap.String("addr", ln.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes the listener and every WebSocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down portal...")

	s.mu.Lock()
	srv := s.http
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Portal shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}

// ActiveClients returns the number of connected WebSocket clients.
func (s *Server) ActiveClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
