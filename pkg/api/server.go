package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/issues"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/messages"
	"github.com/cuemby/cityfix/pkg/metrics"
	"github.com/cuemby/cityfix/pkg/notify"
	"github.com/cuemby/cityfix/pkg/payments"
	"github.com/cuemby/cityfix/pkg/stats"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config holds HTTP server settings
type Config struct {
	Addr           string
	AllowedOrigins []string
	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP
	TrustProxy bool
	// RequestsPerSecond of 0 disables rate limiting
	RequestsPerSecond float64
	Burst             int
}

// Services are the domain services the API exposes
type Services struct {
	Store    storage.Store
	Tokens   *auth.TokenManager
	Users    *users.Service
	Issues   *issues.Service
	Notify   *notify.Service
	Messages *messages.Service
	Payments *payments.Service
	Stats    *stats.Service
}

// Server is the CityFix REST API
type Server struct {
	cfg      Config
	store    storage.Store
	auth     *auth.Middleware
	users    *users.Service
	issues   *issues.Service
	notify   *notify.Service
	messages *messages.Service
	payments *payments.Service
	stats    *stats.Service

	router   chi.Router
	limiter  *RateLimiter
	http     *http.Server
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewServer wires the router. Nothing listens until Start.
func NewServer(cfg Config, svc Services) *Server {
	s := &Server{
		cfg:      cfg,
		store:    svc.Store,
		auth:     auth.NewMiddleware(svc.Tokens, svc.Store, WriteError),
		users:    svc.Users,
		issues:   svc.Issues,
		notify:   svc.Notify,
		messages: svc.Messages,
		payments: svc.Payments,
		stats:    svc.Stats,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("api"),
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	s.router = s.routes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", RequestID: middleware.GetReqID(r.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: middleware.GetReqID(r.Context())})
	})

	s.mountHealth(r)

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		s.mountAuth(r)
		s.mountIssues(r)
		s.mountMe(r)
		s.mountStaff(r)
		s.mountContact(r)
		s.mountPayments(r)
		s.mountAdmin(r)
	})
	return r
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(lis net.Listener) error {
	if s.limiter != nil {
		s.limiter.StartCleanup(time.Minute, s.stopCh)
	}

	metrics.RegisterComponent(metrics.ComponentAPI, true, "")
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("API listening")

	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	metrics.UpdateComponent(metrics.ComponentAPI, false, "shutting down")
	return s.http.Shutdown(ctx)
}
