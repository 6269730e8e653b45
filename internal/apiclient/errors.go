package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ServerError is returned when the proxy answered with an error payload.
type ServerError struct {
	Operation  string
	StatusCode int
	// Payload is the raw value of the "error" field.
	Payload json.RawMessage
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error (status %d): %s", e.Operation, e.StatusCode, e.Message())
}

// Message returns the error payload as shown to the user: strings
// verbatim, anything else as compact JSON.
func (e *ServerError) Message() string {
	var text string
	if err := json.Unmarshal(e.Payload, &text); err == nil {
		return text
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, e.Payload); err == nil {
		return compact.String()
	}
	return string(e.Payload)
}

// TransportError is returned when the request failed outright or the
// proxy answered non-2xx without a parseable error payload.
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseError is returned when a 2xx response matched neither
// the success nor the error shape.
type UnexpectedResponseError struct {
	Operation  string
	StatusCode int
	Body       []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response (status %d): %s", e.Operation, e.StatusCode, truncate(e.Body, 200))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
