package httpapi

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/usecase"
)

// Decider turns a validated application into a decision and runs the
// standalone credit and fraud checks.
type Decider interface {
	Decide(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.Decision, error)
	ScoreCredit(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error)
	CheckFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error)
	Thresholds() domain.Thresholds
}

// StatsBoard is the dashboard lifecycle the API drives.
type StatsBoard interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
	Active() bool
	Stats() (*usecase.StatsSnapshot, bool, error)
}

// Config holds server wiring.
type Config struct {
	Addr      string
	Logger    *slog.Logger
	ErrorLog  *log.Logger
	Decider   Decider
	Dashboard StatsBoard
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// BaseContext bounds background work started by requests, such as an
	// activated dashboard poller. Defaults to context.Background.
	BaseContext context.Context
}

// Server exposes underwriting and the portfolio dashboard over HTTP.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       *slog.Logger
	decider   Decider
	dashboard StatsBoard
	baseCtx   context.Context
}

// New creates the router and the underlying http.Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       logger.With("component", "httpapi"),
		decider:   cfg.Decider,
		dashboard: cfg.Dashboard,
		baseCtx:   baseCtx,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.routes(cfg.Metrics)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ErrorLog:     cfg.ErrorLog,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(metrics http.Handler) {
	s.router.Get("/healthz", s.handleHealth)
	if metrics != nil {
		s.router.Handle("/metrics", metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/applications", func(r chi.Router) {
			r.Post("/", s.handleSubmitApplication)
			r.Post("/validate", s.handleValidateApplication)
		})
		r.Post("/credit-checks", s.handleCreditCheck)
		r.Post("/fraud-checks", s.handleFraudCheck)
		r.Route("/dashboard", func(r chi.Router) {
			r.Put("/", s.handleActivateDashboard)
			r.Delete("/", s.handleDeactivateDashboard)
			r.Get("/stats", s.handleDashboardStats)
		})
	})
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
