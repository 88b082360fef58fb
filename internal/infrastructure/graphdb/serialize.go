package graphdb

import (
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

// serializeEntity flattens an entity into a property map suitable for
// `SET node = $entity`: nested fields become JSON strings, timestamps become
// RFC3339 strings, label lists become string arrays.
func serializeEntity(entity domain.Entity) (map[string]interface{}, error) {
	systemLabels := make([]interface{}, 0, len(entity.SystemLabels))
	for _, label := range entity.SystemLabels {
		systemLabels = append(systemLabels, string(label))
	}
	labels := make([]interface{}, 0, len(entity.Labels))
	for _, label := range entity.Labels {
		labels = append(labels, label)
	}

	props := map[string]interface{}{
		"id":            entity.ID,
		"external_id":   entity.ExternalID,
		"name":          entity.Name,
		"summary":       entity.Summary,
		"labels":        labels,
		"system_labels": systemLabels,
		"created_at":    entity.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    entity.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	if entity.Content != nil {
		encoded, err := json.Marshal(entity.Content)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to encode entity content").WithCause(err)
		}
		props["content"] = string(encoded)
	}
	if len(entity.Attachments) > 0 {
		encoded, err := json.Marshal(entity.Attachments)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to encode entity attachments").WithCause(err)
		}
		props["attachments"] = string(encoded)
	}
	if entity.Embedding != nil {
		encoded, err := json.Marshal(entity.Embedding)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to encode entity embedding").WithCause(err)
		}
		props["embedding"] = string(encoded)
	}
	if len(entity.Metadata) > 0 {
		encoded, err := json.Marshal(entity.Metadata)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to encode entity metadata").WithCause(err)
		}
		props["metadata"] = string(encoded)
	}
	if len(entity.Observations) > 0 {
		encoded, err := json.Marshal(entity.Observations)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to encode entity observations").WithCause(err)
		}
		props["observations"] = string(encoded)
	}

	return props, nil
}

// nodeToEntity rebuilds an entity from node properties. A corrupt JSON
// property is logged and dropped to its zero value rather than failing the
// read; corrupt storage must not poison retrieval.
func nodeToEntity(node neo4j.Node, logger *zap.Logger) domain.Entity {
	props := node.Props
	entity := domain.Entity{
		ID:         stringProp(props, "id"),
		ExternalID: stringProp(props, "external_id"),
		Name:       stringProp(props, "name"),
		Summary:    stringProp(props, "summary"),
		CreatedAt:  timeProp(props, "created_at", logger),
		UpdatedAt:  timeProp(props, "updated_at", logger),
	}

	entity.Labels = stringSliceProp(props, "labels")
	for _, raw := range stringSliceProp(props, "system_labels") {
		label := domain.SystemLabel(raw)
		if !label.Valid() {
			logger.Warn("Dropping unrecognized system label on read",
				zap.String("entity_id", entity.ID),
				zap.String("label", raw),
			)
			continue
		}
		entity.SystemLabels = append(entity.SystemLabels, label)
	}

	decodeJSONProp(props, "content", entity.ID, &entity.Content, logger)
	decodeJSONProp(props, "attachments", entity.ID, &entity.Attachments, logger)
	decodeJSONProp(props, "embedding", entity.ID, &entity.Embedding, logger)
	decodeJSONProp(props, "metadata", entity.ID, &entity.Metadata, logger)
	decodeJSONProp(props, "observations", entity.ID, &entity.Observations, logger)

	return entity
}

func decodeJSONProp[T any](props map[string]interface{}, field, entityID string, target *T, logger *zap.Logger) {
	raw, ok := props[field].(string)
	if !ok || raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		var zero T
		*target = zero
		logger.Warn("Failed to decode JSON field; dropping to empty default",
			zap.String("field", field),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

func stringProp(props map[string]interface{}, key string) string {
	value, _ := props[key].(string)
	return value
}

func stringSliceProp(props map[string]interface{}, key string) []string {
	raw, ok := props[key].([]interface{})
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

func timeProp(props map[string]interface{}, key string, logger *zap.Logger) time.Time {
	raw, ok := props[key].(string)
	if !ok || raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		logger.Warn("Failed to parse stored timestamp", zap.String("field", key), zap.Error(err))
		return time.Time{}
	}
	return parsed
}
