// Package apiclient is the console's client for the incident proxy API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/cragr/snow-incident-console/internal/config"
	"github.com/cragr/snow-incident-console/internal/models"
)

// Client calls /api/incidents with the session cookie on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a proxy API client. The session token, when set, is
// stored in a cookie jar scoped to the API host.
func NewClient(cfg *config.ConsoleConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.SessionToken != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  cfg.SessionCookieName,
			Value: cfg.SessionToken,
			Path:  "/",
		}})
	}

	return &Client{
		baseURL: base.String(),
		// No explicit timeout; callers bound requests with their context.
		httpClient: &http.Client{Jar: jar},
		logger:     logger,
	}, nil
}

// envelope covers every response shape the proxy produces.
type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success *bool           `json:"success"`
	Error   json.RawMessage `json:"error"`
}

// response is a decoded 2xx reply that carried no error payload.
type response struct {
	statusCode int
	body       []byte
	envelope   envelope
}

// ListIncidents fetches the full incident list.
func (c *Client) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	resp, err := c.do(ctx, "list", http.MethodGet, "/api/incidents", nil)
	if err != nil {
		return nil, err
	}

	if !present(resp.envelope.Result) {
		return nil, resp.unexpected("list")
	}

	var incidents []models.Incident
	if err := json.Unmarshal(resp.envelope.Result, &incidents); err != nil {
		return nil, resp.unexpected("list")
	}
	return incidents, nil
}

// CreateIncident creates an incident and returns the record the server stored.
func (c *Client) CreateIncident(ctx context.Context, req models.CreateIncidentRequest) (*models.Incident, error) {
	resp, err := c.do(ctx, "create", http.MethodPost, "/api/incidents", req)
	if err != nil {
		return nil, err
	}
	return resp.incident("create")
}

// UpdateIncident sends a partial update keyed by sysID.
func (c *Client) UpdateIncident(ctx context.Context, sysID string, req models.UpdateIncidentRequest) (*models.Incident, error) {
	resp, err := c.do(ctx, "update", http.MethodPut, "/api/incidents/"+url.PathEscape(sysID), req)
	if err != nil {
		return nil, err
	}
	return resp.incident("update")
}

// DeleteIncident deletes the incident keyed by sysID.
func (c *Client) DeleteIncident(ctx context.Context, sysID string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, "/api/incidents/"+url.PathEscape(sysID), nil)
	if err != nil {
		return err
	}
	if resp.envelope.Success == nil || !*resp.envelope.Success {
		return resp.unexpected("delete")
	}
	return nil
}

// Authenticated asks the proxy whether the session cookie is accepted.
func (c *Client) Authenticated(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/session", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &TransportError{Operation: "session", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return false, &TransportError{Operation: "session", StatusCode: httpResp.StatusCode, Err: errors.New(httpResp.Status)}
	}

	var session models.SessionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&session); err != nil {
		return false, &UnexpectedResponseError{Operation: "session", StatusCode: httpResp.StatusCode}
	}
	return session.Authenticated, nil
}

// do sends one request and classifies the reply. Errors are never retried.
func (c *Client) do(ctx context.Context, operation, method, path string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("incident API request failed", "operation", operation, "error", err)
		return nil, &TransportError{Operation: operation, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Operation: operation, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env envelope
	parsed := json.Unmarshal(respBody, &env) == nil

	if parsed && present(env.Error) {
		c.logger.Error("incident API returned error",
			"operation", operation,
			"status_code", httpResp.StatusCode,
			"error", string(env.Error),
		)
		return nil, &ServerError{Operation: operation, StatusCode: httpResp.StatusCode, Payload: env.Error}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Error("incident API returned status without error payload",
			"operation", operation,
			"status_code", httpResp.StatusCode,
			"response", truncate(respBody, 200),
		)
		return nil, &TransportError{Operation: operation, StatusCode: httpResp.StatusCode, Err: errors.New(httpResp.Status)}
	}

	resp := &response{statusCode: httpResp.StatusCode, body: respBody, envelope: env}
	if !parsed {
		return nil, resp.unexpected(operation)
	}
	return resp, nil
}

// incident decodes a single-record result.
func (r *response) incident(operation string) (*models.Incident, error) {
	if !present(r.envelope.Result) || r.envelope.Result[0] != '{' {
		return nil, r.unexpected(operation)
	}
	var incident models.Incident
	if err := json.Unmarshal(r.envelope.Result, &incident); err != nil {
		return nil, r.unexpected(operation)
	}
	return &incident, nil
}

func (r *response) unexpected(operation string) error {
	return &UnexpectedResponseError{Operation: operation, StatusCode: r.statusCode, Body: r.body}
}

// present reports whether a raw JSON field was set to something other than null.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
