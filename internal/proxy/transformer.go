package proxy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cragr/snow-incident-console/internal/models"
)

// stateLabels maps ServiceNow incident state codes to the labels the console shows.
var stateLabels = map[string]string{
	models.StateCodeNew:        models.StateNew,
	models.StateCodeInProgress: models.StateInProgress,
	models.StateCodeOnHold:     models.StateOnHold,
	models.StateCodeResolved:   models.StateResolved,
	models.StateCodeClosed:     models.StateClosed,
}

// StateLabel returns the label for a ServiceNow state code. Unknown codes
// are returned unchanged.
func StateLabel(code string) string {
	if label, ok := stateLabels[code]; ok {
		return label
	}
	return code
}

// StateCode returns the ServiceNow code for a state label. Labels match
// case-insensitively. Any raw numeric code is accepted as well, so codes
// StateLabel passed through unchanged (such as "8", Canceled) round-trip.
func StateCode(label string) (string, bool) {
	for code, known := range stateLabels {
		if strings.EqualFold(known, label) || code == label {
			return code, true
		}
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 0 {
		return label, true
	}
	return "", false
}

// ToIncident converts a Table API record to the console's incident shape.
func ToIncident(record models.ServiceNowResult) models.Incident {
	return models.Incident{
		SysID:            record.SysID,
		Number:           record.Number,
		ShortDescription: record.ShortDescription,
		Impact:           parseLevel(record.Impact),
		Urgency:          parseLevel(record.Urgency),
		Priority:         parseLevel(record.Priority),
		State:            StateLabel(record.State),
	}
}

// ToIncidents converts a list of Table API records, keeping their order.
func ToIncidents(records []models.ServiceNowResult) []models.Incident {
	incidents := make([]models.Incident, 0, len(records))
	for _, record := range records {
		incidents = append(incidents, ToIncident(record))
	}
	return incidents
}

// parseLevel parses a numeric Table API value. Unparseable values map to
// 0, meaning unknown.
func parseLevel(value string) int {
	// Display values look like "2 - Medium".
	if idx := strings.IndexByte(value, ' '); idx > 0 {
		value = value[:idx]
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// ToServiceNowIncident validates a create request and converts it to a
// Table API payload.
func ToServiceNowIncident(req models.CreateIncidentRequest) (models.ServiceNowIncident, error) {
	if strings.TrimSpace(req.ShortDescription) == "" {
		return models.ServiceNowIncident{}, errors.New("short_description is required")
	}
	if !models.ValidLevel(req.Impact) {
		return models.ServiceNowIncident{}, fmt.Errorf("impact must be 1, 2 or 3, got %d", req.Impact)
	}
	if !models.ValidLevel(req.Urgency) {
		return models.ServiceNowIncident{}, fmt.Errorf("urgency must be 1, 2 or 3, got %d", req.Urgency)
	}

	return models.ServiceNowIncident{
		ShortDescription: req.ShortDescription,
		Impact:           strconv.Itoa(req.Impact),
		Urgency:          strconv.Itoa(req.Urgency),
	}, nil
}

// ToUpdatePayload validates a partial update and converts it to a Table
// API payload. Absent fields stay empty and are omitted on the wire.
func ToUpdatePayload(req models.UpdateIncidentRequest) (models.ServiceNowUpdatePayload, error) {
	var payload models.ServiceNowUpdatePayload

	if req.ShortDescription != nil {
		if strings.TrimSpace(*req.ShortDescription) == "" {
			return payload, errors.New("short_description must not be empty")
		}
		payload.ShortDescription = *req.ShortDescription
	}

	if req.State != nil {
		code, ok := StateCode(*req.State)
		if !ok {
			return payload, fmt.Errorf("unknown state %q", *req.State)
		}
		payload.State = code
	}

	if req.Impact != nil {
		if !models.ValidLevel(*req.Impact) {
			return payload, fmt.Errorf("impact must be 1, 2 or 3, got %d", *req.Impact)
		}
		payload.Impact = strconv.Itoa(*req.Impact)
	}

	if req.Urgency != nil {
		if !models.ValidLevel(*req.Urgency) {
			return payload, fmt.Errorf("urgency must be 1, 2 or 3, got %d", *req.Urgency)
		}
		payload.Urgency = strconv.Itoa(*req.Urgency)
	}

	if req.Priority != nil {
		if *req.Priority < 1 || *req.Priority > models.MaxPriority {
			return payload, fmt.Errorf("priority must be between 1 and %d, got %d", models.MaxPriority, *req.Priority)
		}
		payload.Priority = strconv.Itoa(*req.Priority)
	}

	if payload == (models.ServiceNowUpdatePayload{}) {
		return payload, errors.New("no fields to update")
	}

	return payload, nil
}
