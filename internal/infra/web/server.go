package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/config"
	"cityguide-billing/internal/domain/model"
	port "cityguide-billing/internal/domain/ports/usecase"
)

// CycleRunner triggers one locked billing cycle.
type CycleRunner interface {
	RunOnce(ctx context.Context) (*model.BillingReport, error)
}

// Sweeper retires expired premium flags.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RateLimiter is a fixed-window limiter keyed per user action.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps wires the server to the use cases. Limiter, Health and Metrics are optional.
type Deps struct {
	Premium port.PremiumToggler
	Ledger  port.LedgerManager
	Plans   port.PlanManager
	Cycle   CycleRunner
	Sweeper Sweeper
	Auth    *AuthManager
	Limiter RateLimiter
	Health  func(ctx context.Context) error
	Metrics http.Handler
}

type Server struct {
	cfg     config.HTTPConfig
	apiKey  string
	premium port.PremiumToggler
	ledger  port.LedgerManager
	plans   port.PlanManager
	cycle   CycleRunner
	sweeper Sweeper
	auth    *AuthManager
	limiter RateLimiter
	health  func(ctx context.Context) error
	metrics http.Handler
	log     *zerolog.Logger
	server  *http.Server
}

func NewServer(cfg config.HTTPConfig, adminAPIKey string, d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}
	return &Server{
		cfg:     cfg,
		apiKey:  adminAPIKey,
		premium: d.Premium,
		ledger:  d.Ledger,
		plans:   d.Plans,
		cycle:   d.Cycle,
		sweeper: d.Sweeper,
		auth:    d.Auth,
		limiter: d.Limiter,
		health:  d.Health,
		metrics: d.Metrics,
		log:     &l,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireOwner(s.log), Timeout(10*time.Second))
			r.Put("/places/{placeID}/premium", s.handleSetPremium)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminKey(s.apiKey, s.log))
			r.Post("/billing/run", s.handleRunBilling)
			r.Post("/billing/sweep", s.handleSweep)
			r.Get("/accounts/{userID}", s.handleGetAccount)
			r.Get("/accounts/{userID}/transactions", s.handleListTransactions)
			r.Post("/accounts/{userID}/adjust", s.handleAdjust)
			r.Get("/plans", s.handleListPlans)
			r.Post("/plans", s.handleCreatePlan)
			r.Get("/plans/{planID}", s.handleGetPlan)
		})
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}
