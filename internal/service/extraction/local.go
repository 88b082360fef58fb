package extraction

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"recall-backend/internal/config"
	"recall-backend/internal/domain"
)

// namePattern matches capitalized words and capitalized pairs, the candidate
// surface forms for named entities.
var namePattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\b`)

// stopwords filters pronouns, months, and vague references out of the
// candidate set.
var stopwords = map[string]struct{}{
	"he": {}, "she": {}, "it": {}, "we": {}, "i": {}, "my": {}, "me": {},
	"you": {}, "they": {}, "december": {}, "october": {}, "mid": {}, "first": {},
}

// Seeds are proper-noun hints that bias candidate discovery and
// classification. They are configurable; the defaults come from config.
type Seeds struct {
	Persons       []string
	Locations     []string
	Organizations []string
	Events        []string
}

// SeedsFromConfig builds the hint set from configuration.
func SeedsFromConfig(cfg *config.Config) Seeds {
	return Seeds{
		Persons:       cfg.PersonHints,
		Locations:     cfg.LocationHints,
		Organizations: cfg.OrganizationHints,
		Events:        cfg.EventHints,
	}
}

// LocalProvider is a deterministic, dependency-free extractor that derives
// entities and relations from capitalized tokens. It serves as a stand-in
// for real model providers and as the pipeline's fallback backstop: it may
// return an empty result but never fails on missing input.
type LocalProvider struct {
	seeds  Seeds
	logger *zap.Logger
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a local heuristic provider with the given seeds.
func NewLocalProvider(seeds Seeds, logger *zap.Logger) *LocalProvider {
	return &LocalProvider{seeds: seeds, logger: logger}
}

// Extract tokenizes the entry text and builds one entity plus one MENTIONS
// relation per surviving candidate. Two runs over the same text return
// structurally identical results.
func (p *LocalProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error) {
	text := sourceText(entry, metadata)
	if text == "" {
		p.logger.Info("Local provider received entry without content; returning no-op result",
			zap.String("entry_id", entry.ID))
		return &Result{}, nil
	}

	names := p.extractNames(text)
	result := &Result{
		Entities:  make([]domain.Entity, 0, len(names)),
		Relations: make([]domain.Relation, 0, len(names)),
	}
	for _, name := range names {
		entity, err := p.buildEntity(name, entry)
		if err != nil {
			p.logger.Warn("Skipping locally extracted entity",
				zap.String("name", name), zap.Error(err))
			continue
		}
		result.Entities = append(result.Entities, entity)
		result.Relations = append(result.Relations, domain.Relation{
			Source:       entry.ID,
			Target:       entity.ID,
			RelationType: "MENTIONS",
		})
	}

	return result, nil
}

// extractNames returns the sorted set of candidate names: capitalized
// tokens minus stopwords, plus any person hints present in the text.
func (p *LocalProvider) extractNames(text string) []string {
	candidates := make(map[string]struct{})
	for _, match := range namePattern.FindAllString(text, -1) {
		normalized := strings.TrimSpace(match)
		if _, stop := stopwords[strings.ToLower(normalized)]; stop {
			continue
		}
		candidates[normalized] = struct{}{}
	}
	for _, hint := range p.seeds.Persons {
		if strings.Contains(text, hint) {
			candidates[hint] = struct{}{}
		}
	}

	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *LocalProvider) buildEntity(name string, entry domain.Entity) (domain.Entity, error) {
	systemLabel := p.classify(name)

	labels := []string{"generated", "extracted"}
	switch systemLabel {
	case domain.SystemLabelLocation:
		labels = append(labels, "location")
	case domain.SystemLabelOrganization:
		labels = append(labels, "organization")
	}

	entity := domain.Entity{
		Name:         name,
		SystemLabels: []domain.SystemLabel{systemLabel},
		Labels:       labels,
		Observations: []domain.Observation{
			{
				Text:     fmt.Sprintf("Mentioned alongside entry %s", entry.ID),
				Metadata: map[string]interface{}{"source_entry_id": entry.ID},
			},
		},
		Metadata: map[string]interface{}{
			"generated_by": "local-provider",
			"entity_type":  string(systemLabel),
		},
	}
	if err := entity.Normalize(); err != nil {
		return domain.Entity{}, err
	}
	return entity, nil
}

// classify infers a system label with fixed priority: location, then
// organization, then event, then person.
func (p *LocalProvider) classify(name string) domain.SystemLabel {
	lower := strings.ToLower(name)
	if contains(p.seeds.Locations, name) ||
		strings.HasSuffix(lower, "junction") || strings.HasSuffix(lower, "poughkeepsie") {
		return domain.SystemLabelLocation
	}
	if contains(p.seeds.Organizations, name) || strings.Contains(name, "Florist") {
		return domain.SystemLabelOrganization
	}
	if contains(p.seeds.Events, name) || strings.Contains(lower, "date") {
		return domain.SystemLabelEvent
	}
	return domain.SystemLabelPerson
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
