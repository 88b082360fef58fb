package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

// rawResult mirrors the JSON envelope model providers are prompted to emit.
type rawResult struct {
	Entities  []json.RawMessage `json:"entities"`
	Relations []domain.Relation `json:"relations"`
}

// cleanResponse strips the decoration model output tends to carry: leading
// and trailing whitespace, backtick code fences (with an optional "json"
// language tag), and any prose outside the outermost JSON object.
func cleanResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimPrefix(cleaned, "json")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}

// parseResult decodes a cleaned model response into a Result. Individual
// entities or relations that fail validation are skipped with a warning; an
// envelope that cannot be decoded at all, or that yields nothing usable, is
// an extraction error so the caller can fall back.
func parseResult(raw string, entry domain.Entity, providerName string, logger *zap.Logger) (*Result, error) {
	cleaned := cleanResponse(raw)
	if cleaned == "" {
		return nil, appErrors.NewExtractionError(providerName, fmt.Errorf("empty response"))
	}

	var envelope rawResult
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, appErrors.NewExtractionError(providerName, fmt.Errorf("decode response: %w", err))
	}

	result := &Result{
		Entities:  make([]domain.Entity, 0, len(envelope.Entities)),
		Relations: make([]domain.Relation, 0, len(envelope.Relations)),
	}

	// Entity names the model refers to by relation endpoints may be surface
	// names rather than ids; they are resolved downstream after persistence.
	for _, rawEntity := range envelope.Entities {
		var entity domain.Entity
		if err := json.Unmarshal(rawEntity, &entity); err != nil {
			logger.Warn("Skipping undecodable extracted entity",
				zap.String("provider", providerName), zap.Error(err))
			continue
		}
		if strings.TrimSpace(entity.Name) == "" {
			logger.Warn("Skipping extracted entity without a name",
				zap.String("provider", providerName))
			continue
		}
		if err := entity.Normalize(); err != nil {
			logger.Warn("Skipping invalid extracted entity",
				zap.String("provider", providerName),
				zap.String("name", entity.Name),
				zap.Error(err))
			continue
		}
		result.Entities = append(result.Entities, entity)
	}

	for _, relation := range envelope.Relations {
		if err := relation.Validate(); err != nil {
			logger.Warn("Skipping invalid extracted relation",
				zap.String("provider", providerName), zap.Error(err))
			continue
		}
		relationType, err := domain.NormalizeRelationType(relation.RelationType)
		if err != nil {
			logger.Warn("Skipping extracted relation with unusable type",
				zap.String("provider", providerName),
				zap.String("relation_type", relation.RelationType),
				zap.Error(err))
			continue
		}
		relation.RelationType = relationType
		result.Relations = append(result.Relations, relation)
	}

	if len(result.Entities) == 0 && len(result.Relations) == 0 {
		return nil, appErrors.NewExtractionError(providerName,
			fmt.Errorf("response contained no usable entities or relations"))
	}
	return result, nil
}

// buildPrompt renders the shared instruction prompt for model providers.
// The entry's id is embedded twice: once as context and once inside the
// relation rules, so the model can emit entry-anchored edges whose source is
// the literal id rather than a surface name.
func buildPrompt(entry domain.Entity, text string, truncated bool, contextTokens int) string {
	labels := make([]string, 0, len(entry.SystemLabels))
	for _, label := range entry.SystemLabels {
		labels = append(labels, string(label))
	}
	contextNotice := fmt.Sprintf("You may use up to %d tokens.", contextTokens)
	if truncated {
		contextNotice = fmt.Sprintf("The provided text has been truncated to %d tokens maximum.", contextTokens)
	}

	var b strings.Builder
	b.WriteString("You are a knowledge graph extraction agent for a personal memory service.\n")
	b.WriteString("Perform named-entity and relationship extraction on the journal entry below ")
	b.WriteString("and output ONLY JSON conforming to the schema.\n\n")
	fmt.Fprintf(&b, "ENTRY_ID: %s\n", entry.ID)
	fmt.Fprintf(&b, "ENTRY_LABELS: [%s]\n\n", strings.Join(labels, ", "))
	b.WriteString(contextNotice)
	b.WriteString("\n\nRAW_ENTRY_TEXT:\n\"\"\"")
	b.WriteString(text)
	b.WriteString("\"\"\"\n\n")
	b.WriteString("Requirements:\n")
	b.WriteString("1. Identify distinct entities for people, locations, organizations, objects, events, and key concepts.\n")
	b.WriteString("   - Ignore pronouns, stop words, months, or vague references (\"he\", \"she\", \"it\", \"my\", \"december\", etc.).\n")
	b.WriteString("2. Only the entry node stores the full text; extracted entities must be concise (no long-form body).\n")
	b.WriteString("3. Each entity JSON object MUST include:\n")
	b.WriteString("   - \"name\": short canonical name. Do NOT include an \"id\" field.\n")
	b.WriteString("   - \"system_labels\": choose from [\"PERSON\",\"LOCATION\",\"ORGANIZATION\",\"OBJECT\",\"EVENT\",\"CONCEPT\"].\n")
	b.WriteString("   - \"labels\": include \"extracted\" plus any helpful tags.\n")
	b.WriteString("   - \"summary\": 1-2 sentence description referencing facts from the entry.\n")
	fmt.Fprintf(&b, "   - \"metadata\": include at least {\"source_entry_id\": \"%s\"}.\n", entry.ID)
	b.WriteString("4. Build \"relations\" that reflect the real relationships in the text.\n")
	b.WriteString("   - Use uppercase snake_case relationType values like MENTIONED, WORKED_AT, MET_AT, LOCATED_IN.\n")
	fmt.Fprintf(&b, "   - When linking from the entry to an extracted entity: set \"source\" to \"%s\" and \"target\" to that entity's exact \"name\".\n", entry.ID)
	b.WriteString("   - When linking between extracted entities: set both \"source\" and \"target\" to the exact \"name\" strings of the entities you output.\n")
	b.WriteString("5. Output JSON ONLY in the form {\"entities\": [...], \"relations\": [...]} with no explanations, code fences, or additional text.")
	return b.String()
}

// clipText bounds the prompt text to roughly the provider's context window,
// estimating four characters per token, and reports whether anything was
// cut.
func clipText(text string, contextTokens int) (string, bool) {
	limit := contextTokens * 4
	if limit <= 0 || len(text) <= limit {
		return text, false
	}
	return text[:limit], true
}
