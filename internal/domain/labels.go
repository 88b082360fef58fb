package domain

import (
	"strings"

	appErrors "recall-backend/pkg/errors"
)

// SystemLabel is a reserved label token understood by the graph service.
// The vocabulary is closed; labels outside it are rejected so they can never
// reach the store's label-application statements.
type SystemLabel string

const (
	SystemLabelEntry        SystemLabel = "ENTRY"
	SystemLabelEntity       SystemLabel = "ENTITY"
	SystemLabelPerson       SystemLabel = "PERSON"
	SystemLabelLocation     SystemLabel = "LOCATION"
	SystemLabelOrganization SystemLabel = "ORGANIZATION"
	SystemLabelObject       SystemLabel = "OBJECT"
	SystemLabelEvent        SystemLabel = "EVENT"
	SystemLabelConcept      SystemLabel = "CONCEPT"
	SystemLabelObservation  SystemLabel = "OBSERVATION"
)

// SystemLabels is the closed vocabulary in canonical order.
var SystemLabels = []SystemLabel{
	SystemLabelEntry,
	SystemLabelEntity,
	SystemLabelPerson,
	SystemLabelLocation,
	SystemLabelOrganization,
	SystemLabelObject,
	SystemLabelEvent,
	SystemLabelConcept,
	SystemLabelObservation,
}

var systemLabelSet = func() map[SystemLabel]struct{} {
	set := make(map[SystemLabel]struct{}, len(SystemLabels))
	for _, label := range SystemLabels {
		set[label] = struct{}{}
	}
	return set
}()

// Valid reports whether the label belongs to the closed vocabulary.
func (l SystemLabel) Valid() bool {
	_, ok := systemLabelSet[l]
	return ok
}

// ParseSystemLabel converts a raw token into a SystemLabel.
func ParseSystemLabel(raw string) (SystemLabel, error) {
	label := SystemLabel(strings.ToUpper(strings.TrimSpace(raw)))
	if !label.Valid() {
		return "", appErrors.NewValidationError("unknown system label '" + raw + "'")
	}
	return label, nil
}

// ContentFormat identifies the format of a content block body.
type ContentFormat string

const (
	FormatText     ContentFormat = "text"
	FormatMarkdown ContentFormat = "markdown"
	FormatHTML     ContentFormat = "html"
	FormatJSON     ContentFormat = "json"
	FormatOther    ContentFormat = "other"
)

// Valid reports whether the format is one of the supported values.
func (f ContentFormat) Valid() bool {
	switch f {
	case FormatText, FormatMarkdown, FormatHTML, FormatJSON, FormatOther:
		return true
	}
	return false
}

// ParseContentFormat converts a raw string into a ContentFormat.
func ParseContentFormat(raw string) (ContentFormat, error) {
	format := ContentFormat(strings.ToLower(strings.TrimSpace(raw)))
	if !format.Valid() {
		return "", appErrors.NewValidationError("unsupported content format '" + raw + "'")
	}
	return format, nil
}
