package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository/mocks"
	"recall-backend/internal/service/extraction"
	appErrors "recall-backend/pkg/errors"
)

// stubProvider returns a canned result or error.
type stubProvider struct {
	result *extraction.Result
	err    error
}

func (s *stubProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*extraction.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &extraction.Result{}, nil
}

type fixture struct {
	entities  *mocks.MockEntityRepository
	relations *mocks.MockRelationRepository
	service   *Service
}

func newFixture(t *testing.T, provider extraction.Provider, allowFallback bool) *fixture {
	t.Helper()
	logger := zap.NewNop()
	fallback := extraction.NewLocalProvider(extraction.Seeds{}, logger)
	pipeline := extraction.NewPipeline(provider, "stub", fallback, allowFallback, logger)
	dispatcher := extraction.NewDispatcher(pipeline, extraction.SyncScheduler{}, logger)

	entities := mocks.NewMockEntityRepository()
	relations := mocks.NewMockRelationRepository()
	return &fixture{
		entities:  entities,
		relations: relations,
		service:   NewService(entities, relations, pipeline, dispatcher, logger),
	}
}

func TestIngestDeferredReturnsQueued(t *testing.T) {
	f := newFixture(t, &stubProvider{}, true)

	resp, err := f.service.Ingest(context.Background(), Request{Text: "Took a walk."})
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, resp.Status)
	require.NotEmpty(t, resp.EntryID)

	entry, err := f.entities.Get(context.Background(), resp.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "Memory Entry", entry.Name)
	assert.True(t, entry.IsEntry())
	require.NotNil(t, entry.Content)
	assert.Equal(t, domain.FormatMarkdown, entry.Content.Format)
	assert.Equal(t, "Took a walk.", entry.Content.Body)
}

func TestIngestSyncWhenFallbackDisabled(t *testing.T) {
	f := newFixture(t, &stubProvider{}, false)

	resp, err := f.service.Ingest(context.Background(), Request{Text: "Took a walk."})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, resp.Status)
}

func TestIngestForcedSyncReturnsProcessed(t *testing.T) {
	f := newFixture(t, &stubProvider{}, true)

	resp, err := f.service.Ingest(context.Background(),
		Request{Text: "Took a walk.", ProcessSynchronously: true})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, resp.Status)
}

func TestIngestSyncSurfacesExtractionError(t *testing.T) {
	provider := &stubProvider{err: appErrors.NewExtractionError("stub", fmt.Errorf("nothing usable"))}
	f := newFixture(t, provider, false)

	_, err := f.service.Ingest(context.Background(), Request{Text: "Took a walk."})
	require.Error(t, err)
	assert.True(t, appErrors.IsExtraction(err))

	// The entry node is durable even when extraction fails.
	assert.Equal(t, 1, f.entities.Count())
}

func TestIngestUsesTitleAndFormat(t *testing.T) {
	f := newFixture(t, &stubProvider{}, true)

	resp, err := f.service.Ingest(context.Background(), Request{
		Text:   "# Notes",
		Title:  "Standup notes",
		Format: "text",
		Labels: []string{"work", "Work", "standup"},
	})
	require.NoError(t, err)

	entry, err := f.entities.Get(context.Background(), resp.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "Standup notes", entry.Name)
	assert.Equal(t, domain.FormatText, entry.Content.Format)
	assert.Equal(t, []string{"work", "standup"}, entry.Labels)
}

func TestIngestRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t, &stubProvider{}, true)

	_, err := f.service.Ingest(context.Background(), Request{Text: "x", Format: "docx"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, 0, f.entities.Count())
}

// entryAwareProvider builds its result from the entry it is handed, the way
// real providers reference the entry id in relations.
type entryAwareProvider struct {
	extracted domain.Entity
}

func (p *entryAwareProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*extraction.Result, error) {
	return &extraction.Result{
		Entities: []domain.Entity{p.extracted},
		Relations: []domain.Relation{
			// Source is the entry's literal id; target is the extracted
			// entity's surface name and must be resolved to its stored id.
			{Source: entry.ID, Target: "Brian", RelationType: "MENTIONS"},
			// An endpoint that is neither the entry id nor an extracted name
			// passes through verbatim and fails edge creation at the store.
			{Source: entry.ID, Target: "not-a-known-node", RelationType: "KNOWS"},
		},
	}, nil
}

func TestPersistExtractionResolvesEndpoints(t *testing.T) {
	extracted := domain.Entity{Name: "Brian", SystemLabels: []domain.SystemLabel{domain.SystemLabelPerson}}
	require.NoError(t, extracted.Normalize())

	f := newFixture(t, &entryAwareProvider{extracted: extracted}, true)

	resp, err := f.service.Ingest(context.Background(),
		Request{Text: "Brian.", ProcessSynchronously: true})
	require.NoError(t, err)

	// The extracted entity was persisted alongside the entry.
	assert.Equal(t, 2, f.entities.Count())

	relations := f.relations.All()
	require.Len(t, relations, 2)

	assert.Equal(t, resp.EntryID, relations[0].Source)
	assert.Equal(t, extracted.ID, relations[0].Target, "name endpoint should resolve to the stored id")
	assert.Equal(t, "MENTIONS", relations[0].RelationType)

	assert.Equal(t, "not-a-known-node", relations[1].Target, "unknown endpoints pass through verbatim")
}

func TestPersistExtractionSkipsUnknownEndpoints(t *testing.T) {
	extracted := domain.Entity{Name: "Brian", SystemLabels: []domain.SystemLabel{domain.SystemLabelPerson}}
	require.NoError(t, extracted.Normalize())

	f := newFixture(t, &entryAwareProvider{extracted: extracted}, true)
	// Restrict edge creation to nothing: every edge fails and is skipped.
	f.relations.KnownIDs = map[string]struct{}{}

	_, err := f.service.Ingest(context.Background(),
		Request{Text: "Brian.", ProcessSynchronously: true})
	require.NoError(t, err, "failed edges are skipped, not propagated")
	assert.Empty(t, f.relations.All())
}

func TestIngestMergesExtractionMetadata(t *testing.T) {
	var seenMetadata map[string]interface{}
	provider := &captureProvider{seen: &seenMetadata}
	f := newFixture(t, provider, true)

	_, err := f.service.Ingest(context.Background(), Request{
		Text:                 "Dinner with Yoli.",
		Source:               "mobile-app",
		Metadata:             map[string]interface{}{"mood": "good"},
		ProcessSynchronously: true,
	})
	require.NoError(t, err)

	require.NotNil(t, seenMetadata)
	assert.Equal(t, "Dinner with Yoli.", seenMetadata["text"])
	assert.Equal(t, "mobile-app", seenMetadata["source"])
	assert.Equal(t, "good", seenMetadata["mood"])
}

type captureProvider struct {
	seen *map[string]interface{}
}

func (c *captureProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*extraction.Result, error) {
	*c.seen = metadata
	return &extraction.Result{}, nil
}
