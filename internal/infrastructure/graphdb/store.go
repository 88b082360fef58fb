// Package graphdb implements the Neo4j-backed persistence layer: the driver
// lifecycle and the entity/relation repositories.
package graphdb

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"recall-backend/internal/config"
	appErrors "recall-backend/pkg/errors"
)

// Store owns the process-wide Neo4j driver. Connect must be called before
// any repository operation; sessions are per-operation and must be closed by
// the caller.
type Store struct {
	cfg    *config.Config
	logger *zap.Logger

	mu     sync.RWMutex
	driver neo4j.DriverWithContext
}

// NewStore creates a store bound to the configured Neo4j instance. The
// connection is not opened until Connect is called.
func NewStore(cfg *config.Config, logger *zap.Logger) *Store {
	return &Store{cfg: cfg, logger: logger}
}

// Connect initializes the shared driver. Calling Connect on a connected
// store is a no-op.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver != nil {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(
		s.cfg.Neo4jURI,
		neo4j.BasicAuth(s.cfg.Neo4jUsername, s.cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return appErrors.NewUnavailableError("graph store").WithCause(err)
	}

	s.driver = driver
	s.logger.Info("Connected to graph store", zap.String("uri", s.cfg.Neo4jURI))
	return nil
}

// Close releases the shared driver.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// Session opens a scoped session against the configured database. Callers
// must Close the session on every exit path.
func (s *Store) Session(ctx context.Context) (neo4j.SessionWithContext, error) {
	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()

	if driver == nil {
		return nil, appErrors.NewUnavailableError("graph store").
			WithDetails(map[string]interface{}{"reason": "Connect was not called"})
	}

	return driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Neo4jDatabase}), nil
}

// VerifyConnectivity reports whether the store is reachable.
func (s *Store) VerifyConnectivity(ctx context.Context) bool {
	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()

	if driver == nil {
		return false
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		s.logger.Warn("Graph store connectivity check failed", zap.Error(err))
		return false
	}
	return true
}
