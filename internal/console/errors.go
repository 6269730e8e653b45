package console

import (
	"errors"

	"github.com/cragr/snow-incident-console/internal/apiclient"
)

// Operation names a workflow for error messages.
type Operation string

const (
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ValidationError is raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UserMessage turns a workflow error into the text shown to the user.
func UserMessage(op Operation, err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}

	var server *apiclient.ServerError
	if errors.As(err, &server) {
		if op == OpCreate {
			return "Create failed: " + server.Message()
		}
		return server.Message()
	}

	var unexpected *apiclient.UnexpectedResponseError
	if errors.As(err, &unexpected) && op == OpCreate {
		return "Failed to create incident: unexpected response"
	}

	switch op {
	case OpCreate:
		return "Failed to create incident. Please try again."
	case OpUpdate:
		return "Failed to update incident. Please try again."
	case OpDelete:
		return "Failed to delete incident. Please try again."
	default:
		return "Failed to load incidents. Please try again."
	}
}
