// Package search answers retrieval queries over the memory graph.
package search

import (
	"context"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository"
)

// StrategyTextProxy names the semantic-search strategy in use. Semantic
// search currently proxies to substring search; the envelope makes the
// eventual swap to a vector index observable to clients without breaking
// them.
const StrategyTextProxy = "text-proxy"

// SemanticResult is the semantic-search response envelope.
type SemanticResult struct {
	Strategy string          `json:"strategy"`
	Results  []domain.Entity `json:"results"`
}

// Service performs text and semantic search.
type Service struct {
	entities repository.EntityRepository
	logger   *zap.Logger
}

// NewService creates the search service.
func NewService(entities repository.EntityRepository, logger *zap.Logger) *Service {
	return &Service{entities: entities, logger: logger}
}

// TextSearch runs a case-insensitive substring match over entity names and
// summaries.
func (s *Service) TextSearch(ctx context.Context, query string, limit int) ([]domain.Entity, error) {
	return s.entities.Search(ctx, query, limit)
}

// SemanticSearch wraps text search in the strategy envelope.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int) (*SemanticResult, error) {
	results, err := s.entities.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return &SemanticResult{Strategy: StrategyTextProxy, Results: results}, nil
}
