// Package models defines the incident records exchanged between the console,
// the proxy API and the ServiceNow Table API.
package models

// Incident is the console's view of a ServiceNow incident record.
type Incident struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Impact           int    `json:"impact,omitempty"`
	Urgency          int    `json:"urgency,omitempty"`
	Priority         int    `json:"priority,omitempty"`
	State            string `json:"state"`
}

// Incident state labels.
const (
	StateNew        = "New"
	StateInProgress = "In Progress"
	StateOnHold     = "On Hold"
	StateResolved   = "Resolved"
	StateClosed     = "Closed"
)

// States lists the editable state labels in workflow order.
var States = []string{StateNew, StateInProgress, StateOnHold, StateResolved, StateClosed}

// Impact and urgency levels.
const (
	LevelHigh   = 1
	LevelMedium = 2
	LevelLow    = 3
)

// MaxPriority is the lowest urgency priority (5 - Planning).
const MaxPriority = 5

// ValidLevel reports whether v is an impact or urgency value ServiceNow accepts.
func ValidLevel(v int) bool {
	return v >= LevelHigh && v <= LevelLow
}

// LevelName returns the display name of an impact or urgency level.
func LevelName(v int) string {
	switch v {
	case LevelHigh:
		return "High"
	case LevelMedium:
		return "Medium"
	case LevelLow:
		return "Low"
	default:
		return ""
	}
}

// PriorityName returns the display name of a priority value.
func PriorityName(p int) string {
	switch p {
	case 1:
		return "Critical"
	case 2:
		return "High"
	case 3:
		return "Moderate"
	case 4:
		return "Low"
	case 5:
		return "Planning"
	default:
		return ""
	}
}

// ComputePriority derives a priority from impact and urgency.
func ComputePriority(impact, urgency int) int {
	return min(impact+urgency-1, MaxPriority)
}

// CreateIncidentRequest is the body of POST /api/incidents.
type CreateIncidentRequest struct {
	ShortDescription string `json:"short_description"`
	Impact           int    `json:"impact"`
	Urgency          int    `json:"urgency"`
}

// UpdateIncidentRequest is the body of PUT /api/incidents/{sys_id}. Nil
// fields are not sent and keep their server-side value.
type UpdateIncidentRequest struct {
	ShortDescription *string `json:"short_description,omitempty"`
	Impact           *int    `json:"impact,omitempty"`
	Urgency          *int    `json:"urgency,omitempty"`
	State            *string `json:"state,omitempty"`
	Priority         *int    `json:"priority,omitempty"`
}

// ListResponse is the success body of GET /api/incidents.
type ListResponse struct {
	Result []Incident `json:"result"`
}

// IncidentResponse is the success body of create and update.
type IncidentResponse struct {
	Result Incident `json:"result"`
}

// DeleteResponse is the success body of DELETE /api/incidents/{sys_id}.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is returned by the proxy on failure. Error is either a
// message string or the upstream error object.
type ErrorResponse struct {
	Error any `json:"error"`
}

// SessionResponse is the body of GET /api/session.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}
