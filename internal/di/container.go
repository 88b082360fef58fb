// Package di assembles the service's object graph.
package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"recall-backend/internal/config"
	"recall-backend/internal/infrastructure/graphdb"
	"recall-backend/internal/service/entity"
	"recall-backend/internal/service/extraction"
	"recall-backend/internal/service/ingestion"
	"recall-backend/internal/service/search"
	"recall-backend/pkg/auth"
)

// Container holds the wired application components.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store     *graphdb.Store
	Scheduler *extraction.GoScheduler

	IngestionService *ingestion.Service
	EntityService    *entity.Service
	SearchService    *search.Service

	JWTValidator *auth.JWTValidator
	Metrics      *prometheus.Registry
}

// InitializeContainer builds the object graph and connects to the store.
// The store must be reachable at startup; a service that cannot persist
// entries has nothing to offer.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store := graphdb.NewStore(cfg, logger)
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	if !store.VerifyConnectivity(ctx) {
		return nil, fmt.Errorf("graph store at %s is not reachable", cfg.Neo4jURI)
	}

	entityRepo := graphdb.NewEntityRepository(store, logger)
	relationRepo := graphdb.NewRelationRepository(store, logger)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := extraction.NewRegistry(cfg, logger)
	observers := []extraction.Observer{extraction.NewLoggingObserver(logger)}
	if cfg.EnableMetrics {
		observers = append(observers, extraction.NewMetricsObserver(metrics))
	}
	pipeline := extraction.NewPipeline(
		registry.Primary(),
		cfg.ExtractionProvider,
		registry.FallbackLocal(),
		cfg.AllowFallback,
		logger,
		observers...,
	)
	scheduler := extraction.NewGoScheduler()
	dispatcher := extraction.NewDispatcher(pipeline, scheduler, logger)

	// Production requires JWT_SECRET via config validation; development
	// falls back to a fixed local secret.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "development-secret-change-in-production"
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: jwtSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("build token validator: %w", err)
	}

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Store:            store,
		Scheduler:        scheduler,
		IngestionService: ingestion.NewService(entityRepo, relationRepo, pipeline, dispatcher, logger),
		EntityService:    entity.NewService(entityRepo, relationRepo, logger),
		SearchService:    search.NewService(entityRepo, logger),
		JWTValidator:     validator,
		Metrics:          metrics,
	}, nil
}

// Shutdown waits for in-flight background extractions and releases the
// store connection.
func (c *Container) Shutdown(ctx context.Context) {
	c.Scheduler.Wait()
	if err := c.Store.Close(ctx); err != nil {
		c.Logger.Warn("Failed to close graph store", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		zapCfg := zap.NewProductionConfig()
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			return zapCfg.Build()
		}
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
