package domain

import (
	"fmt"
	"regexp"
	"strings"

	appErrors "recall-backend/pkg/errors"
)

// relationTypePattern gates every edge label before it reaches a query. The
// label cannot be parameterized by the store's query protocol, so this regex
// is the sole defense against injection through the type name. Do not relax
// it.
var relationTypePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Relation is a directed edge between two entities. Source and Target hold
// entity IDs once persisted; provider payloads may reference extracted
// entities by name until the ingestion service resolves them.
type Relation struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType string `json:"relationType"`
}

// Validate checks that all endpoint references and the type are present.
func (r Relation) Validate() error {
	if r.Source == "" {
		return appErrors.NewValidationError("relation source cannot be empty")
	}
	if r.Target == "" {
		return appErrors.NewValidationError("relation target cannot be empty")
	}
	if r.RelationType == "" {
		return appErrors.NewValidationError("relation type cannot be empty")
	}
	return nil
}

// NormalizeRelationType uppercases the edge label and rejects anything
// outside ^[A-Z0-9_]+$.
func NormalizeRelationType(relationType string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(relationType))
	if !relationTypePattern.MatchString(normalized) {
		return "", appErrors.NewValidationError(fmt.Sprintf("invalid relation type '%s'", relationType))
	}
	return normalized, nil
}
