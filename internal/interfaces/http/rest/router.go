// Package rest wires the HTTP surface of the service.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recall-backend/internal/config"
	"recall-backend/internal/interfaces/http/rest/handlers"
	"recall-backend/internal/interfaces/http/rest/middleware"
	"recall-backend/internal/service/entity"
	"recall-backend/internal/service/ingestion"
	"recall-backend/internal/service/search"
	"recall-backend/pkg/auth"
)

// ReadinessChecker reports whether the backing store is reachable.
type ReadinessChecker interface {
	VerifyConnectivity(ctx context.Context) bool
}

// Router creates and configures the HTTP router.
type Router struct {
	cfg       *config.Config
	ingestion *ingestion.Service
	entities  *entity.Service
	search    *search.Service
	validator *auth.JWTValidator
	readiness ReadinessChecker
	metrics   prometheus.Gatherer
	logger    *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	cfg *config.Config,
	ingestionService *ingestion.Service,
	entityService *entity.Service,
	searchService *search.Service,
	validator *auth.JWTValidator,
	readiness ReadinessChecker,
	metrics prometheus.Gatherer,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		ingestion: ingestionService,
		entities:  entityService,
		search:    searchService,
		validator: validator,
		readiness: readiness,
		metrics:   metrics,
		logger:    logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(rt.metrics, promhttp.HandlerOpts{}))
	}

	router.Route("/graph", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		entryHandler := handlers.NewEntryHandler(rt.ingestion, rt.logger)
		r.Post("/entries", entryHandler.CreateEntry)

		entityHandler := handlers.NewEntityHandler(rt.entities, rt.logger)
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", entityHandler.ListEntities)
			r.Get("/{entityID}", entityHandler.GetEntity)
			r.Delete("/{entityID}", entityHandler.DeleteEntity)
			r.Get("/{entityID}/relations", entityHandler.GetEntityRelations)
		})

		searchHandler := handlers.NewSearchHandler(rt.search, rt.logger)
		r.Route("/search", func(r chi.Router) {
			r.Post("/text", searchHandler.TextSearch)
			r.Post("/semantic", searchHandler.SemanticSearch)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready only when the graph store answers.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if rt.readiness == nil || !rt.readiness.VerifyConnectivity(ctx) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
