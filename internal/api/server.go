package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/auth"
	"github.com/mailist/mailist/internal/logger"
	"github.com/mailist/mailist/internal/names"
	"github.com/mailist/mailist/internal/store"
	"github.com/mailist/mailist/internal/telemetry"
)

// requestTimeout bounds a request, including a directory refresh it waits on.
const requestTimeout = 30 * time.Second

// helperRateLimit caps the unauthenticated rule helpers per client IP and minute.
const helperRateLimit = 120

type Server struct {
	store       store.Store
	directory   names.Snapshotter
	adminAPIKey string
	log         logger.Logger
	audit       *audit.Service
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithAudit records every successful change to a list.
func WithAudit(a *audit.Service) Option { return func(s *Server) { s.audit = a } }

func NewServer(st store.Store, dir names.Snapshotter, adminKey string, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{store: st, directory: dir, adminAPIKey: adminKey, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(requestTimeout))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/lists", func(r chi.Router) {
		r.Get("/", s.handleListLists)
		r.Post("/", s.authAdmin(s.handleCreateList))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetList)
			r.Put("/", s.authAdmin(s.handleUpdateList))
			r.Delete("/", s.authAdmin(s.handleDeleteList))

			r.Get("/rules/{slot}", s.handleGetRule)
			r.Get("/rules/{slot}/names", s.handleGetRuleNames)
			r.Put("/rules/{slot}/filters", s.authAdmin(s.handlePutFilters))
			r.Put("/rules/{slot}/query", s.authAdmin(s.handlePutQuery))
		})
	})

	// stateless helpers, no storage involved
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(helperRateLimit, time.Minute))
		r.Post("/v1/rules/parse", s.handleParseRule)
		r.Post("/v1/rules/build", s.handleBuildRule)
		r.Post("/v1/rules/evaluate", s.handleEvaluateRule)
	})

	return r
}

// ---- middleware ----

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return auth.RequireAdmin(s.adminAPIKey, authFailure)(next).ServeHTTP
}

func authFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status == http.StatusUnauthorized {
		UnauthorizedError(w, r, msg)
		return
	}
	ForbiddenError(w, r, msg)
}
