package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/api/handler"
	mw "github.com/edvin/agency/internal/api/middleware"
	"github.com/edvin/agency/internal/auth"
	"github.com/edvin/agency/internal/bootstrap"
	"github.com/edvin/agency/internal/config"
)

// Database is what the server needs from the core pool directly.
// *pgxpool.Pool satisfies this interface.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	db          Database
	vault       *bootstrap.Vault
	tokens      *auth.Tokens
	cfg         *config.Config
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, db Database, v *bootstrap.Vault, tokens *auth.Tokens, cfg *config.Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		db:          db,
		vault:       v,
		tokens:      tokens,
		cfg:         cfg,
		auditLogger: mw.NewAuditLogger(db, logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1/vault", func(r chi.Router) {
		r.Use(mw.Auth(s.tokens, s.vault.Services.Organization))
		r.Use(s.auditLogger.Middleware)

		v := handler.NewVault(s.vault.Orchestrator, s.vault.Validator, s.vault.Restorer, s.vault.Configs, s.vault.Registry)

		// Snapshots
		r.Get("/snapshots", v.ListSnapshots)
		r.Post("/snapshots", v.CreateSnapshot)
		r.Delete("/snapshots/{id}", v.DeleteSnapshot)
		r.Post("/snapshots/{id}/validate", v.ValidateSnapshot)
		r.Post("/snapshots/{id}/restore", v.RestoreSnapshot)

		// Automatic backup configuration
		r.Get("/config", v.GetConfig)
		r.Put("/config", v.UpdateConfig)

		// Registered data modules
		r.Get("/modules", v.ListModules)
	})

	s.router.Route("/internal/v1/vault", func(r chi.Router) {
		r.Use(mw.SchedulerToken(s.cfg.SchedulerToken))

		scheduled := handler.NewScheduledBackups(s.vault.Scheduler)
		r.Post("/scheduled-backups", scheduled.Run)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close flushes pending audit entries.
func (s *Server) Close() {
	s.auditLogger.Close()
}
