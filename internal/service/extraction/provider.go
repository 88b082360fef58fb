// Package extraction turns an ENTRY entity into derived entities and
// relations. It houses the provider implementations, the registry that
// selects among them, the pipeline that applies the fallback policy, and the
// dispatcher that runs extractions in the background.
package extraction

import (
	"context"

	"recall-backend/internal/domain"
)

// Result is the validated output of a provider run.
type Result struct {
	Entities  []domain.Entity
	Relations []domain.Relation
}

// Provider transforms an ENTRY entity into additional graph nodes and
// edges. Implementations must be safe for concurrent calls; their only
// mutable state is configuration read at construction.
//
// A failure to produce any usable output is reported as an extraction error
// (pkg/errors ErrorTypeExtraction) so the pipeline can apply its fallback
// policy.
type Provider interface {
	Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error)
}

// sourceText locates the text a provider should analyze: entry content
// first, then summary, then the ingestion metadata, then a raw_text
// metadata escape hatch.
func sourceText(entry domain.Entity, metadata map[string]interface{}) string {
	if entry.Content != nil && entry.Content.Body != "" {
		return entry.Content.Body
	}
	if entry.Summary != "" {
		return entry.Summary
	}
	if metadata != nil {
		if text, ok := metadata["text"].(string); ok && text != "" {
			return text
		}
	}
	if entry.Metadata != nil {
		if text, ok := entry.Metadata["raw_text"].(string); ok && text != "" {
			return text
		}
	}
	return ""
}
