package graphdb

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository"
	appErrors "recall-backend/pkg/errors"
)

// applySystemLabels conditionally sets each reserved label as a first-class
// graph label. The set of statements is closed and hard-coded; label names
// are never interpolated from input, which prevents injection through an
// unknown label. Labels set here are never removed by a later upsert, so the
// node's label set grows monotonically.
const applySystemLabels = `
FOREACH (_ IN CASE WHEN 'ENTRY' IN entity.system_labels THEN [1] ELSE [] END | SET e:ENTRY)
FOREACH (_ IN CASE WHEN 'ENTITY' IN entity.system_labels THEN [1] ELSE [] END | SET e:ENTITY)
FOREACH (_ IN CASE WHEN 'PERSON' IN entity.system_labels THEN [1] ELSE [] END | SET e:PERSON)
FOREACH (_ IN CASE WHEN 'LOCATION' IN entity.system_labels THEN [1] ELSE [] END | SET e:LOCATION)
FOREACH (_ IN CASE WHEN 'ORGANIZATION' IN entity.system_labels THEN [1] ELSE [] END | SET e:ORGANIZATION)
FOREACH (_ IN CASE WHEN 'OBJECT' IN entity.system_labels THEN [1] ELSE [] END | SET e:OBJECT)
FOREACH (_ IN CASE WHEN 'EVENT' IN entity.system_labels THEN [1] ELSE [] END | SET e:EVENT)
FOREACH (_ IN CASE WHEN 'CONCEPT' IN entity.system_labels THEN [1] ELSE [] END | SET e:CONCEPT)
FOREACH (_ IN CASE WHEN 'OBSERVATION' IN entity.system_labels THEN [1] ELSE [] END | SET e:OBSERVATION)`

const upsertEntityQuery = `
MERGE (e:Entity {id: $entity.id})
SET e = $entity
WITH e, $entity AS entity` + applySystemLabels + `
RETURN e`

const bulkCreateEntitiesQuery = `
UNWIND $entities AS entity
MERGE (e:Entity {id: entity.id})
SET e = entity
WITH e, entity` + applySystemLabels + `
RETURN e`

const getEntityQuery = `
MATCH (e:Entity {id: $entity_id})
RETURN e`

const listEntitiesQuery = `
MATCH (e:Entity)
RETURN e
ORDER BY e.created_at
SKIP $skip
LIMIT $limit`

const searchEntitiesQuery = `
MATCH (e:Entity)
WHERE toLower(e.name) CONTAINS toLower($q)
   OR toLower(e.summary) CONTAINS toLower($q)
RETURN e
LIMIT $limit`

const deleteEntityQuery = `
MATCH (e:Entity {id: $entity_id})
DETACH DELETE e
RETURN count(e) AS deleted_count`

// EntityRepository persists entity nodes in Neo4j.
type EntityRepository struct {
	store  *Store
	logger *zap.Logger
}

var _ repository.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a Neo4j-backed entity repository.
func NewEntityRepository(store *Store, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{store: store, logger: logger}
}

// Upsert matches on id, replaces all scalar properties, and applies the
// system labels as graph labels. The stored entity is returned by re-reading
// the node.
func (r *EntityRepository) Upsert(ctx context.Context, entity domain.Entity) (*domain.Entity, error) {
	payload, err := serializeEntity(entity)
	if err != nil {
		return nil, err
	}

	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, upsertEntityQuery, map[string]interface{}{"entity": payload})
	if err != nil {
		return nil, appErrors.NewDatabaseError("upsert entity", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, appErrors.NewDatabaseError("upsert entity", err)
	}

	node, ok := record.Get("e")
	if !ok {
		return nil, appErrors.NewDatabaseError("upsert entity", nil)
	}
	stored := nodeToEntity(node.(neo4j.Node), r.logger)
	return &stored, nil
}

// BulkCreate upserts a batch of entities in a single UNWIND query.
func (r *EntityRepository) BulkCreate(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	payloads := make([]interface{}, 0, len(entities))
	for _, entity := range entities {
		payload, err := serializeEntity(entity)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}

	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, bulkCreateEntitiesQuery, map[string]interface{}{"entities": payloads})
	if err != nil {
		return nil, appErrors.NewDatabaseError("bulk create entities", err)
	}

	stored := make([]domain.Entity, 0, len(entities))
	for result.Next(ctx) {
		if node, ok := result.Record().Get("e"); ok {
			stored = append(stored, nodeToEntity(node.(neo4j.Node), r.logger))
		}
	}
	if err := result.Err(); err != nil {
		return nil, appErrors.NewDatabaseError("bulk create entities", err)
	}
	return stored, nil
}

// Get reads an entity by id.
func (r *EntityRepository) Get(ctx context.Context, id string) (*domain.Entity, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, getEntityQuery, map[string]interface{}{"entity_id": id})
	if err != nil {
		return nil, appErrors.NewDatabaseError("get entity", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, appErrors.NewDatabaseError("get entity", err)
		}
		return nil, appErrors.NewNotFoundError("entity")
	}

	node, ok := result.Record().Get("e")
	if !ok {
		return nil, appErrors.NewNotFoundError("entity")
	}
	entity := nodeToEntity(node.(neo4j.Node), r.logger)
	return &entity, nil
}

// List returns a paginated scan of entity nodes.
func (r *EntityRepository) List(ctx context.Context, limit, skip int) ([]domain.Entity, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, listEntitiesQuery, map[string]interface{}{
		"limit": limit,
		"skip":  skip,
	})
	if err != nil {
		return nil, appErrors.NewDatabaseError("list entities", err)
	}
	return r.collect(ctx, result, "list entities")
}

// Search performs a case-insensitive substring match over name and summary.
func (r *EntityRepository) Search(ctx context.Context, query string, limit int) ([]domain.Entity, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, searchEntitiesQuery, map[string]interface{}{
		"q":     query,
		"limit": limit,
	})
	if err != nil {
		return nil, appErrors.NewDatabaseError("search entities", err)
	}
	return r.collect(ctx, result, "search entities")
}

// Delete detach-deletes a node and all incident edges.
func (r *EntityRepository) Delete(ctx context.Context, id string) (bool, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return false, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, deleteEntityQuery, map[string]interface{}{"entity_id": id})
	if err != nil {
		return false, appErrors.NewDatabaseError("delete entity", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, appErrors.NewDatabaseError("delete entity", err)
	}
	count, _ := record.Get("deleted_count")
	deleted, _ := count.(int64)
	return deleted > 0, nil
}

func (r *EntityRepository) collect(ctx context.Context, result neo4j.ResultWithContext, operation string) ([]domain.Entity, error) {
	entities := make([]domain.Entity, 0)
	for result.Next(ctx) {
		if node, ok := result.Record().Get("e"); ok {
			entities = append(entities, nodeToEntity(node.(neo4j.Node), r.logger))
		}
	}
	if err := result.Err(); err != nil {
		return nil, appErrors.NewDatabaseError(operation, err)
	}
	return entities, nil
}
