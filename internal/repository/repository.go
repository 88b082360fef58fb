// Package repository defines the persistence interfaces the services depend
// on. Implementations live under internal/infrastructure.
package repository

import (
	"context"

	"recall-backend/internal/domain"
)

// EntityRepository persists polymorphic entity nodes.
type EntityRepository interface {
	// Upsert matches on ID, replacing all scalar properties on match and
	// inserting on miss. System labels are applied as graph labels and grow
	// monotonically across upserts. Returns the stored entity.
	Upsert(ctx context.Context, entity domain.Entity) (*domain.Entity, error)

	// BulkCreate upserts a batch of entities in one query.
	BulkCreate(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error)

	// Get reads an entity by ID; a missing node yields a NotFound error.
	Get(ctx context.Context, id string) (*domain.Entity, error)

	// List returns a paginated scan.
	List(ctx context.Context, limit, skip int) ([]domain.Entity, error)

	// Search performs a case-insensitive substring match over name and
	// summary.
	Search(ctx context.Context, query string, limit int) ([]domain.Entity, error)

	// Delete detach-deletes a node and all incident edges; reports whether a
	// node was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// RelationRepository persists dynamically-typed edges between entities.
type RelationRepository interface {
	// Create adds a single edge. The relation type is validated before use;
	// endpoints must reference stored entity IDs.
	Create(ctx context.Context, relation domain.Relation) (*domain.Relation, error)

	// BulkCreate is best-effort: individual failures are logged and skipped;
	// the successfully created edges are returned.
	BulkCreate(ctx context.Context, relations []domain.Relation) ([]domain.Relation, error)

	// ListForEntity returns the outbound edges of a node.
	ListForEntity(ctx context.Context, id string) ([]domain.Relation, error)
}
