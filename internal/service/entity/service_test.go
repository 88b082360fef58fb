package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository/mocks"
	appErrors "recall-backend/pkg/errors"
)

func storedEntity(t *testing.T, repo *mocks.MockEntityRepository, name string) domain.Entity {
	t.Helper()
	entity := domain.Entity{
		Name:         name,
		SystemLabels: []domain.SystemLabel{domain.SystemLabelPerson},
	}
	require.NoError(t, entity.Normalize())
	stored, err := repo.Upsert(context.Background(), entity)
	require.NoError(t, err)
	return *stored
}

func TestGetMissingEntityIsNotFound(t *testing.T) {
	service := NewService(mocks.NewMockEntityRepository(), mocks.NewMockRelationRepository(), zap.NewNop())

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestListPaginates(t *testing.T) {
	repo := mocks.NewMockEntityRepository()
	for _, name := range []string{"a", "b", "c"} {
		storedEntity(t, repo, name)
	}
	service := NewService(repo, mocks.NewMockRelationRepository(), zap.NewNop())

	page, err := service.List(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "b", page.Items[0].Name)
}

func TestDeleteRemovesEntity(t *testing.T) {
	repo := mocks.NewMockEntityRepository()
	stored := storedEntity(t, repo, "Brian")
	service := NewService(repo, mocks.NewMockRelationRepository(), zap.NewNop())

	require.NoError(t, service.Delete(context.Background(), stored.ID))

	_, err := service.Get(context.Background(), stored.ID)
	assert.True(t, appErrors.IsNotFound(err))

	err = service.Delete(context.Background(), stored.ID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestRelationsRequiresExistingEntity(t *testing.T) {
	repo := mocks.NewMockEntityRepository()
	relations := mocks.NewMockRelationRepository()
	service := NewService(repo, relations, zap.NewNop())

	_, err := service.Relations(context.Background(), "missing")
	assert.True(t, appErrors.IsNotFound(err))

	source := storedEntity(t, repo, "Brian")
	target := storedEntity(t, repo, "Yoli")
	_, err = relations.Create(context.Background(), domain.Relation{
		Source: source.ID, Target: target.ID, RelationType: "KNOWS",
	})
	require.NoError(t, err)

	edges, err := service.Relations(context.Background(), source.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "KNOWS", edges[0].RelationType)
}
