// Package domain defines the building blocks of the memory graph. The
// Entity model is intentionally flexible so any kind of note, extracted
// entity, or observation can be represented while still capturing enough
// structured information for downstream reasoning.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "recall-backend/pkg/errors"
)

// ContentBlock is the human-readable body of a note or entity.
type ContentBlock struct {
	Format   ContentFormat          `json:"format"`
	Body     string                 `json:"body"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// MediaAttachment references an image, audio clip, or other rich media.
type MediaAttachment struct {
	URI         string                 `json:"uri"`
	MediaType   string                 `json:"media_type"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EmbeddingVector is a dense vector representation used for semantic
// similarity search.
type EmbeddingVector struct {
	Model     string                 `json:"model"`
	Vector    []float64              `json:"vector"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Observation is a structured fact derived from a memory.
type Observation struct {
	ID         string                 `json:"id"`
	Text       string                 `json:"text"`
	Source     string                 `json:"source,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	Confidence *float64               `json:"confidence,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Entity represents any node (entry, extracted entity, observation) in the
// graph.
type Entity struct {
	ID           string                 `json:"id"`
	ExternalID   string                 `json:"external_id,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Summary      string                 `json:"summary,omitempty"`
	Labels       []string               `json:"labels"`
	SystemLabels []SystemLabel          `json:"system_labels"`
	Content      *ContentBlock          `json:"content,omitempty"`
	Attachments  []MediaAttachment      `json:"attachments,omitempty"`
	Embedding    *EmbeddingVector       `json:"embedding,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Observations []Observation          `json:"observations,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// IsEntry reports whether the node stores a full memory.
func (e *Entity) IsEntry() bool {
	for _, label := range e.SystemLabels {
		if label == SystemLabelEntry {
			return true
		}
	}
	return false
}

// Normalize applies the model invariants in place: it assigns missing
// identifiers and timestamps, normalizes the label lists, and validates the
// nested payloads. Every entity must pass through Normalize before it is
// persisted or handed to a provider.
func (e *Entity) Normalize() error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	e.Labels = NormalizeLabels(e.Labels)

	systemLabels, err := NormalizeSystemLabels(e.SystemLabels)
	if err != nil {
		return err
	}
	e.SystemLabels = systemLabels

	if e.Content != nil {
		if e.Content.Body == "" {
			return appErrors.NewValidationError("content body cannot be empty")
		}
		if e.Content.Format == "" {
			e.Content.Format = FormatText
		}
		if !e.Content.Format.Valid() {
			return appErrors.NewValidationError("unsupported content format '" + string(e.Content.Format) + "'")
		}
	}

	for _, attachment := range e.Attachments {
		if attachment.URI == "" {
			return appErrors.NewValidationError("attachment uri cannot be empty")
		}
		if attachment.MediaType == "" {
			return appErrors.NewValidationError("attachment media_type cannot be empty")
		}
	}

	if e.Embedding != nil {
		if e.Embedding.Model == "" {
			return appErrors.NewValidationError("embedding model cannot be empty")
		}
		if len(e.Embedding.Vector) == 0 {
			return appErrors.NewValidationError("embedding vector cannot be empty")
		}
		if e.Embedding.CreatedAt.IsZero() {
			e.Embedding.CreatedAt = now
		}
	}

	for i := range e.Observations {
		obs := &e.Observations[i]
		if obs.Text == "" {
			return appErrors.NewValidationError("observation text cannot be empty")
		}
		if obs.ID == "" {
			obs.ID = uuid.New().String()
		}
		if obs.CreatedAt.IsZero() {
			obs.CreatedAt = now
		}
		if obs.Confidence != nil && (*obs.Confidence < 0 || *obs.Confidence > 1) {
			return appErrors.NewValidationError("observation confidence must be between 0 and 1")
		}
	}

	// ENTRY nodes must be able to reconstruct the original memory.
	if e.IsEntry() && e.Content == nil && len(e.Attachments) == 0 && len(e.Metadata) == 0 {
		return appErrors.NewValidationError("ENTRY entities require content, attachments, or metadata")
	}

	return nil
}

// NormalizeLabels trims and deduplicates free-form labels case-insensitively
// while preserving the original order and casing.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		normalized := strings.TrimSpace(label)
		if normalized == "" {
			continue
		}
		lower := strings.ToLower(normalized)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		cleaned = append(cleaned, normalized)
	}
	return cleaned
}

// NormalizeSystemLabels deduplicates the reserved labels, rejects tokens
// outside the closed vocabulary, and guarantees ENTITY is present.
func NormalizeSystemLabels(labels []SystemLabel) ([]SystemLabel, error) {
	seen := make(map[SystemLabel]struct{}, len(labels)+1)
	cleaned := make([]SystemLabel, 0, len(labels)+1)
	for _, label := range labels {
		if !label.Valid() {
			return nil, appErrors.NewValidationError("unknown system label '" + string(label) + "'")
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		cleaned = append(cleaned, label)
	}

	if _, ok := seen[SystemLabelEntity]; !ok {
		cleaned = append([]SystemLabel{SystemLabelEntity}, cleaned...)
	}

	return cleaned, nil
}
