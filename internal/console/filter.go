package console

import (
	"fmt"
	"strings"

	"github.com/cragr/snow-incident-console/internal/models"
)

// SearchField selects which incident field the search term is matched against.
type SearchField string

const (
	FieldNumber           SearchField = "number"
	FieldState            SearchField = "state"
	FieldShortDescription SearchField = "short_description"
)

// SearchFields lists the searchable fields in display order.
var SearchFields = []SearchField{FieldNumber, FieldState, FieldShortDescription}

// ParseSearchField validates a field name.
func ParseSearchField(name string) (SearchField, error) {
	for _, field := range SearchFields {
		if string(field) == name {
			return field, nil
		}
	}
	return "", fmt.Errorf("unknown search field %q (want number, state or short_description)", name)
}

// Next returns the field after f, wrapping around.
func (f SearchField) Next() SearchField {
	for i, field := range SearchFields {
		if field == f {
			return SearchFields[(i+1)%len(SearchFields)]
		}
	}
	return SearchFields[0]
}

// Label is the human-readable field name.
func (f SearchField) Label() string {
	switch f {
	case FieldNumber:
		return "Number"
	case FieldState:
		return "State"
	case FieldShortDescription:
		return "Description"
	default:
		return string(f)
	}
}

func (f SearchField) value(incident models.Incident) (string, bool) {
	switch f {
	case FieldNumber:
		return incident.Number, true
	case FieldState:
		return incident.State, true
	case FieldShortDescription:
		return incident.ShortDescription, true
	default:
		return "", false
	}
}

// Filter returns the incidents whose selected field contains term,
// case-insensitively. An empty term matches everything. The input slice
// is never modified.
func Filter(incidents []models.Incident, term string, field SearchField) []models.Incident {
	matched := make([]models.Incident, 0, len(incidents))
	if term == "" {
		return append(matched, incidents...)
	}

	query := strings.ToLower(term)
	for _, incident := range incidents {
		value, ok := field.value(incident)
		if ok && strings.Contains(strings.ToLower(value), query) {
			matched = append(matched, incident)
		}
	}
	return matched
}
