// Package http serves the ledger JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"paypulse/internal/auth"
	"paypulse/internal/log"
	"paypulse/internal/middleware/ratelimit"
	"paypulse/internal/middleware/security"
	"paypulse/internal/middleware/trace"
	"paypulse/internal/services"
)

// Options wires the server to its collaborators.
type Options struct {
	Addr      string
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Tokens    *auth.Tokens
	// Ready backs /readyz; nil means always ready.
	Ready              func(context.Context) error
	Logger             *log.Logger
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
	Clock          func() time.Time
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	ready     func(context.Context) error
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	detector  *security.Detector
	now       func() time.Time
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	s := &Server{
		ledger:    opts.Ledger,
		dashboard: opts.Dashboard,
		ready:     opts.Ready,
		logger:    logger,
		detector:  security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           ratelimit.MutatingMethods,
		}),
		now:     now,
		started: now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Tokens),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(tokens *auth.Tokens) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not_found", "no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(tokens, writeError))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", withUser(s.handleListCategories))
			r.Post("/", withUser(s.handleCreateCategory))
			r.Put("/{id}", withUser(s.handleUpdateCategory))
			r.Delete("/{id}", withUser(s.handleDeleteCategory))
		})
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", withUser(s.handleListExpenses))
			r.Post("/", withUser(s.handleCreateExpense))
			r.Get("/{id}", withUser(s.handleGetExpense))
			r.Put("/{id}", withUser(s.handleUpdateExpense))
			r.Delete("/{id}", withUser(s.handleDeleteExpense))
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", withUser(s.handleListBudgets))
			r.Post("/", withUser(s.handleCreateBudget))
			r.Get("/{id}", withUser(s.handleGetBudget))
			r.Put("/{id}", withUser(s.handleUpdateBudget))
			r.Delete("/{id}", withUser(s.handleDeleteBudget))
		})
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", withUser(s.handleListGoals))
			r.Post("/", withUser(s.handleCreateGoal))
			r.Get("/{id}", withUser(s.handleGetGoal))
			r.Put("/{id}", withUser(s.handleUpdateGoal))
			r.Delete("/{id}", withUser(s.handleDeleteGoal))
		})

		r.Get("/settings", withUser(s.handleGetSettings))
		r.Put("/settings", withUser(s.handleUpdateSettings))
		r.Post("/settings/pin/verify", withUser(s.handleVerifyPin))

		r.Get("/dashboard", withUser(s.handleDashboard))
		r.Get("/reports/monthly", withUser(s.handleMonthlyReport))
		r.Get("/reports/monthly.pdf", withUser(s.handleMonthlyReportPDF))
	})

	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
