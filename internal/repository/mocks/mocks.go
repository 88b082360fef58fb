// Package mocks provides in-memory repository implementations for unit
// tests.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

// MockEntityRepository is an in-memory EntityRepository. It mirrors the
// store semantics the services rely on: upsert-by-id, monotonic graph-label
// growth, substring search over name/summary.
type MockEntityRepository struct {
	mu       sync.Mutex
	entities map[string]domain.Entity
	order    []string
	// graphLabels tracks the union of system labels applied across upserts
	// of the same node, mirroring label monotonicity at the store.
	graphLabels map[string]map[domain.SystemLabel]struct{}

	UpsertErr error
	BulkErr   error
}

// NewMockEntityRepository creates an empty in-memory entity repository.
func NewMockEntityRepository() *MockEntityRepository {
	return &MockEntityRepository{
		entities:    make(map[string]domain.Entity),
		graphLabels: make(map[string]map[domain.SystemLabel]struct{}),
	}
}

func (m *MockEntityRepository) Upsert(ctx context.Context, entity domain.Entity) (*domain.Entity, error) {
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(entity)
	stored := m.entities[entity.ID]
	return &stored, nil
}

func (m *MockEntityRepository) BulkCreate(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error) {
	if m.BulkErr != nil {
		return nil, m.BulkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]domain.Entity, 0, len(entities))
	for _, entity := range entities {
		m.store(entity)
		stored = append(stored, m.entities[entity.ID])
	}
	return stored, nil
}

func (m *MockEntityRepository) Get(ctx context.Context, id string) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	if !ok {
		return nil, appErrors.NewNotFoundError("entity")
	}
	return &entity, nil
}

func (m *MockEntityRepository) List(ctx context.Context, limit, skip int) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]domain.Entity, 0, limit)
	for i := skip; i < len(m.order) && len(results) < limit; i++ {
		results = append(results, m.entities[m.order[i]])
	}
	return results, nil
}

func (m *MockEntityRepository) Search(ctx context.Context, query string, limit int) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(query)
	results := make([]domain.Entity, 0)
	for _, id := range m.order {
		entity := m.entities[id]
		if strings.Contains(strings.ToLower(entity.Name), needle) ||
			strings.Contains(strings.ToLower(entity.Summary), needle) {
			results = append(results, entity)
			if len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

func (m *MockEntityRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return false, nil
	}
	delete(m.entities, id)
	delete(m.graphLabels, id)
	for i, stored := range m.order {
		if stored == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// GraphLabels returns the sorted union of system labels applied to a node.
func (m *MockEntityRepository) GraphLabels(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, 0, len(m.graphLabels[id]))
	for label := range m.graphLabels[id] {
		labels = append(labels, string(label))
	}
	sort.Strings(labels)
	return labels
}

// Count returns the number of stored nodes.
func (m *MockEntityRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

func (m *MockEntityRepository) store(entity domain.Entity) {
	if _, ok := m.entities[entity.ID]; !ok {
		m.order = append(m.order, entity.ID)
	}
	m.entities[entity.ID] = entity
	labels := m.graphLabels[entity.ID]
	if labels == nil {
		labels = make(map[domain.SystemLabel]struct{})
		m.graphLabels[entity.ID] = labels
	}
	for _, label := range entity.SystemLabels {
		labels[label] = struct{}{}
	}
}

// MockRelationRepository is an in-memory RelationRepository.
type MockRelationRepository struct {
	mu        sync.Mutex
	relations []domain.Relation

	// KnownIDs restricts edge creation to the given endpoints when non-nil,
	// mirroring MATCH-based creation against the store.
	KnownIDs map[string]struct{}

	CreateErr error
}

// NewMockRelationRepository creates an empty in-memory relation repository.
func NewMockRelationRepository() *MockRelationRepository {
	return &MockRelationRepository{}
}

func (m *MockRelationRepository) Create(ctx context.Context, relation domain.Relation) (*domain.Relation, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if err := relation.Validate(); err != nil {
		return nil, err
	}
	relationType, err := domain.NormalizeRelationType(relation.RelationType)
	if err != nil {
		return nil, err
	}
	relation.RelationType = relationType

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.KnownIDs != nil {
		if _, ok := m.KnownIDs[relation.Source]; !ok {
			return nil, appErrors.NewNotFoundError("relation endpoint")
		}
		if _, ok := m.KnownIDs[relation.Target]; !ok {
			return nil, appErrors.NewNotFoundError("relation endpoint")
		}
	}
	m.relations = append(m.relations, relation)
	return &relation, nil
}

func (m *MockRelationRepository) BulkCreate(ctx context.Context, relations []domain.Relation) ([]domain.Relation, error) {
	created := make([]domain.Relation, 0, len(relations))
	for _, relation := range relations {
		stored, err := m.Create(ctx, relation)
		if err != nil {
			continue
		}
		created = append(created, *stored)
	}
	return created, nil
}

func (m *MockRelationRepository) ListForEntity(ctx context.Context, id string) ([]domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]domain.Relation, 0)
	for _, relation := range m.relations {
		if relation.Source == id {
			results = append(results, relation)
		}
	}
	return results, nil
}

// All returns every stored relation.
func (m *MockRelationRepository) All() []domain.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Relation(nil), m.relations...)
}
