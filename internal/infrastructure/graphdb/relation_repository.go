package graphdb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository"
	appErrors "recall-backend/pkg/errors"
)

const listRelationsQuery = `
MATCH (source:Entity {id: $entity_id})-[r]->(target:Entity)
RETURN source.id AS source, type(r) AS type, target.id AS target`

// RelationRepository persists dynamically-typed edges in Neo4j.
type RelationRepository struct {
	store  *Store
	logger *zap.Logger
}

var _ repository.RelationRepository = (*RelationRepository)(nil)

// NewRelationRepository creates a Neo4j-backed relation repository.
func NewRelationRepository(store *Store, logger *zap.Logger) *RelationRepository {
	return &RelationRepository{store: store, logger: logger}
}

// Create merges a single edge between two stored entities. The edge type is
// uppercased and validated against ^[A-Z0-9_]+$ before being interpolated
// into the query; the store's protocol cannot parameterize relationship
// types, so this is the one place a query is built by string concatenation.
func (r *RelationRepository) Create(ctx context.Context, relation domain.Relation) (*domain.Relation, error) {
	if err := relation.Validate(); err != nil {
		return nil, err
	}
	relationType, err := domain.NormalizeRelationType(relation.RelationType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
MATCH (source:Entity {id: $source_id})
MATCH (target:Entity {id: $target_id})
MERGE (source)-[r:%s]->(target)
RETURN source.id AS source, target.id AS target`, relationType)

	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"source_id": relation.Source,
		"target_id": relation.Target,
	})
	if err != nil {
		return nil, appErrors.NewDatabaseError("create relation", err)
	}
	// Single fails when either endpoint did not match a stored node.
	if _, err := result.Single(ctx); err != nil {
		return nil, appErrors.NewNotFoundError("relation endpoint")
	}

	created := domain.Relation{
		Source:       relation.Source,
		Target:       relation.Target,
		RelationType: relationType,
	}
	return &created, nil
}

// BulkCreate is best-effort: failed edges are logged and skipped.
func (r *RelationRepository) BulkCreate(ctx context.Context, relations []domain.Relation) ([]domain.Relation, error) {
	created := make([]domain.Relation, 0, len(relations))
	for _, relation := range relations {
		stored, err := r.Create(ctx, relation)
		if err != nil {
			r.logger.Warn("Failed to persist relation",
				zap.String("source", relation.Source),
				zap.String("target", relation.Target),
				zap.String("relation_type", relation.RelationType),
				zap.Error(err),
			)
			continue
		}
		created = append(created, *stored)
	}
	return created, nil
}

// ListForEntity returns the outbound edges of a node, materializing the edge
// label as the relation type.
func (r *RelationRepository) ListForEntity(ctx context.Context, id string) ([]domain.Relation, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, listRelationsQuery, map[string]interface{}{"entity_id": id})
	if err != nil {
		return nil, appErrors.NewDatabaseError("list relations", err)
	}

	relations := make([]domain.Relation, 0)
	for result.Next(ctx) {
		record := result.Record()
		source, _ := record.Get("source")
		target, _ := record.Get("target")
		relationType, _ := record.Get("type")
		relations = append(relations, domain.Relation{
			Source:       source.(string),
			Target:       target.(string),
			RelationType: relationType.(string),
		})
	}
	if err := result.Err(); err != nil {
		return nil, appErrors.NewDatabaseError("list relations", err)
	}
	return relations, nil
}
