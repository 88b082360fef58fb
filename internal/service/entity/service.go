// Package entity exposes read and maintenance operations on graph nodes.
package entity

import (
	"context"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository"
	appErrors "recall-backend/pkg/errors"
)

// ListResult pairs a page of entities with the number of items returned.
type ListResult struct {
	Items []domain.Entity `json:"items"`
	Total int             `json:"total"`
}

// Service reads, lists, and deletes entities.
type Service struct {
	entities  repository.EntityRepository
	relations repository.RelationRepository
	logger    *zap.Logger
}

// NewService creates the entity service.
func NewService(entities repository.EntityRepository, relations repository.RelationRepository, logger *zap.Logger) *Service {
	return &Service{entities: entities, relations: relations, logger: logger}
}

// Get returns an entity by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Entity, error) {
	return s.entities.Get(ctx, id)
}

// List returns a page of entities.
func (s *Service) List(ctx context.Context, limit, skip int) (*ListResult, error) {
	items, err := s.entities.List(ctx, limit, skip)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: len(items)}, nil
}

// Delete removes an entity and its incident edges.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.entities.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return appErrors.NewNotFoundError("entity")
	}
	s.logger.Info("Deleted entity", zap.String("entity_id", id))
	return nil
}

// Relations returns the outbound edges of an entity. The entity must exist.
func (s *Service) Relations(ctx context.Context, id string) ([]domain.Relation, error) {
	if _, err := s.entities.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.relations.ListForEntity(ctx, id)
}
