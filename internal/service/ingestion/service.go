// Package ingestion persists memory entries and drives the extraction of
// their derived subgraph.
package ingestion

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	"recall-backend/internal/repository"
	"recall-backend/internal/service/extraction"
)

// Statuses reported to the caller.
const (
	StatusQueued    = "queued"
	StatusProcessed = "processed"
)

// Request carries a memory entry to ingest.
type Request struct {
	Text                 string                 `json:"text" validate:"required,min=1"`
	Title                string                 `json:"title,omitempty"`
	Summary              string                 `json:"summary,omitempty"`
	Labels               []string               `json:"labels,omitempty"`
	Source               string                 `json:"source,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	ProcessSynchronously bool                   `json:"process_synchronously,omitempty"`
}

// Response is the ingestion acknowledgement.
type Response struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

// Service builds the entry node, persists it, and runs or schedules
// extraction. The entry node is always persisted before any derived entity
// or relation is written.
type Service struct {
	entities   repository.EntityRepository
	relations  repository.RelationRepository
	pipeline   *extraction.Pipeline
	dispatcher *extraction.Dispatcher
	logger     *zap.Logger
}

// NewService assembles the ingestion service.
func NewService(
	entities repository.EntityRepository,
	relations repository.RelationRepository,
	pipeline *extraction.Pipeline,
	dispatcher *extraction.Dispatcher,
	logger *zap.Logger,
) *Service {
	return &Service{
		entities:   entities,
		relations:  relations,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Ingest persists the entry and runs extraction. Extraction runs inline
// when the request forces it or when the fallback policy is disabled (a
// strict pipeline must surface provider failures to the caller); otherwise
// it is deferred and the caller gets StatusQueued immediately.
func (s *Service) Ingest(ctx context.Context, req Request) (*Response, error) {
	entry, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}

	stored, err := s.entities.Upsert(ctx, *entry)
	if err != nil {
		return nil, err
	}

	metadata := s.extractionMetadata(req)

	runSync := req.ProcessSynchronously || !s.pipeline.AllowFallback()
	if runSync {
		result, err := s.pipeline.Run(ctx, *stored, metadata)
		if err != nil {
			return nil, err
		}
		s.persistExtraction(ctx, *stored, result)
		return &Response{EntryID: stored.ID, Status: StatusProcessed}, nil
	}

	s.dispatcher.Enqueue(ctx, *stored, metadata, func(bgCtx context.Context, result *extraction.Result) {
		s.persistExtraction(bgCtx, *stored, result)
	})
	return &Response{EntryID: stored.ID, Status: StatusQueued}, nil
}

func (s *Service) buildEntry(req Request) (*domain.Entity, error) {
	name := strings.TrimSpace(req.Title)
	if name == "" {
		name = "Memory Entry"
	}

	format := domain.ContentFormat(req.Format)
	if req.Format == "" {
		format = domain.FormatMarkdown
	}

	entry := domain.Entity{
		Name:         name,
		Summary:      req.Summary,
		Labels:       req.Labels,
		SystemLabels: []domain.SystemLabel{domain.SystemLabelEntry},
		Content: &domain.ContentBlock{
			Format: format,
			Body:   req.Text,
		},
		Metadata: req.Metadata,
	}
	if err := entry.Normalize(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// extractionMetadata merges the request metadata with the text and source,
// so providers that only see metadata still find the entry text.
func (s *Service) extractionMetadata(req Request) map[string]interface{} {
	metadata := make(map[string]interface{}, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["text"] = req.Text
	metadata["source"] = req.Source
	return metadata
}

// persistExtraction writes the derived subgraph: entities first, then
// relations with their endpoints resolved from surface names to stored ids.
// Persistence failures here are logged, not propagated; the entry node is
// already durable.
func (s *Service) persistExtraction(ctx context.Context, entry domain.Entity, result *extraction.Result) {
	if result == nil || (len(result.Entities) == 0 && len(result.Relations) == 0) {
		return
	}

	stored, err := s.entities.BulkCreate(ctx, result.Entities)
	if err != nil {
		s.logger.Error("Failed to persist extracted entities",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return
	}

	nameToID := make(map[string]string, len(stored))
	for _, entity := range stored {
		if entity.Name != "" {
			nameToID[entity.Name] = entity.ID
		}
	}

	relations := make([]domain.Relation, 0, len(result.Relations))
	for _, relation := range result.Relations {
		relation.Source = resolveEndpoint(relation.Source, nameToID)
		relation.Target = resolveEndpoint(relation.Target, nameToID)
		relations = append(relations, relation)
	}

	if _, err := s.relations.BulkCreate(ctx, relations); err != nil {
		s.logger.Error("Failed to persist extracted relations",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
	}
}

// resolveEndpoint maps an extracted entity name to its stored id. Endpoints
// that are not names of entities in this payload pass through verbatim:
// the entry's own id, and any id already known to the store.
func resolveEndpoint(endpoint string, nameToID map[string]string) string {
	if id, ok := nameToID[endpoint]; ok {
		return id
	}
	return endpoint
}
