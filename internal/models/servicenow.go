package models

// ServiceNowIncident represents the payload structure for creating
// incidents in ServiceNow via the Table API.
type ServiceNowIncident struct {
	ShortDescription string `json:"short_description"`
	Impact           string `json:"impact"`
	Urgency          string `json:"urgency"`
}

// ServiceNowResponse represents the response from ServiceNow Table API.
type ServiceNowResponse struct {
	Result ServiceNowResult `json:"result"`
}

// ServiceNowListResponse represents the response from ServiceNow Table API for list queries.
type ServiceNowListResponse struct {
	Result []ServiceNowResult `json:"result"`
}

// ServiceNowResult represents a single incident record from ServiceNow.
// The Table API returns every field as a string.
type ServiceNowResult struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	State            string `json:"state"`
	ShortDescription string `json:"short_description"`
	Impact           string `json:"impact"`
	Urgency          string `json:"urgency"`
	Priority         string `json:"priority"`
}

// ServiceNowUpdatePayload represents a partial update of an incident.
// Empty fields are left untouched by ServiceNow.
type ServiceNowUpdatePayload struct {
	ShortDescription string `json:"short_description,omitempty"`
	State            string `json:"state,omitempty"`
	Impact           string `json:"impact,omitempty"`
	Urgency          string `json:"urgency,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

// ServiceNowError is the error envelope returned by the Table API.
type ServiceNowError struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
	Status string `json:"status"`
}

// ServiceNowIncidentFields is the sysparm_fields list requested on list queries.
const ServiceNowIncidentFields = "sys_id,number,short_description,impact,urgency,priority,state"

// ServiceNow incident state codes.
const (
	StateCodeNew        = "1"
	StateCodeInProgress = "2"
	StateCodeOnHold     = "3"
	// StateCodeResolved indicates the incident is resolved (state 6 in ServiceNow).
	StateCodeResolved = "6"
	StateCodeClosed   = "7"
)
