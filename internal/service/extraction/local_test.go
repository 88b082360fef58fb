package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
)

func testSeeds() Seeds {
	return Seeds{
		Persons:       []string{"Brian", "Yoli", "Eric", "Darren"},
		Locations:     []string{"Hopewell Junction", "Poughkeepsie"},
		Organizations: []string{"Twilight Florist"},
		Events:        []string{"date", "meeting", "first date"},
	}
}

func testEntry(t *testing.T, body string) domain.Entity {
	t.Helper()
	entry := domain.Entity{
		Name:         "Memory Entry",
		SystemLabels: []domain.SystemLabel{domain.SystemLabelEntry},
		Content: &domain.ContentBlock{
			Format: domain.FormatText,
			Body:   body,
		},
	}
	require.NoError(t, entry.Normalize())
	return entry
}

func TestLocalProviderExtract(t *testing.T) {
	provider := NewLocalProvider(testSeeds(), zap.NewNop())
	entry := testEntry(t, "Brian met Yoli in Poughkeepsie. They ordered from Twilight Florist in December.")

	result, err := provider.Extract(context.Background(), entry, nil)
	require.NoError(t, err)

	byName := make(map[string]domain.Entity)
	for _, entity := range result.Entities {
		byName[entity.Name] = entity
	}

	// Pronouns and month names never become entities.
	assert.NotContains(t, byName, "They")
	assert.NotContains(t, byName, "December")

	require.Contains(t, byName, "Brian")
	require.Contains(t, byName, "Poughkeepsie")
	require.Contains(t, byName, "Twilight Florist")

	assert.Contains(t, byName["Brian"].SystemLabels, domain.SystemLabelPerson)
	assert.Contains(t, byName["Poughkeepsie"].SystemLabels, domain.SystemLabelLocation)
	assert.Contains(t, byName["Twilight Florist"].SystemLabels, domain.SystemLabelOrganization)

	// Every extracted entity carries the implicit ENTITY label and an
	// observation tying it back to the entry.
	for _, entity := range result.Entities {
		assert.Equal(t, domain.SystemLabelEntity, entity.SystemLabels[0])
		require.NotEmpty(t, entity.Observations)
		assert.Contains(t, entity.Observations[0].Text, entry.ID)
	}

	// One MENTIONS edge from the entry per entity.
	require.Len(t, result.Relations, len(result.Entities))
	for _, relation := range result.Relations {
		assert.Equal(t, entry.ID, relation.Source)
		assert.Equal(t, "MENTIONS", relation.RelationType)
	}
}

func TestLocalProviderDeterministic(t *testing.T) {
	provider := NewLocalProvider(testSeeds(), zap.NewNop())
	entry := testEntry(t, "Darren drove Eric to Hopewell Junction for a first date.")

	first, err := provider.Extract(context.Background(), entry, nil)
	require.NoError(t, err)
	second, err := provider.Extract(context.Background(), entry, nil)
	require.NoError(t, err)

	require.Len(t, second.Entities, len(first.Entities))
	for i := range first.Entities {
		assert.Equal(t, first.Entities[i].Name, second.Entities[i].Name)
		assert.Equal(t, first.Entities[i].SystemLabels, second.Entities[i].SystemLabels)
	}
}

func TestLocalProviderEmptyTextIsNoOp(t *testing.T) {
	provider := NewLocalProvider(testSeeds(), zap.NewNop())
	entry := domain.Entity{
		Name:         "Memory Entry",
		SystemLabels: []domain.SystemLabel{domain.SystemLabelEntry},
		Metadata:     map[string]interface{}{"source": "api"},
	}
	require.NoError(t, entry.Normalize())

	result, err := provider.Extract(context.Background(), entry, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Relations)
}

func TestLocalProviderReadsMetadataText(t *testing.T) {
	provider := NewLocalProvider(testSeeds(), zap.NewNop())
	entry := domain.Entity{
		Name:         "Memory Entry",
		SystemLabels: []domain.SystemLabel{domain.SystemLabelEntry},
		Metadata:     map[string]interface{}{"source": "api"},
	}
	require.NoError(t, entry.Normalize())

	result, err := provider.Extract(context.Background(), entry,
		map[string]interface{}{"text": "Yoli visited Poughkeepsie."})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		names = append(names, entity.Name)
	}
	assert.Contains(t, names, "Yoli")
	assert.Contains(t, names, "Poughkeepsie")
}
