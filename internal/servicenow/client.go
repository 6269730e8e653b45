package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cragr/snow-incident-console/internal/config"
	"github.com/cragr/snow-incident-console/internal/metrics"
	"github.com/cragr/snow-incident-console/internal/models"
)

type bearerKey struct{}

// WithBearerToken returns a context whose requests authenticate to
// ServiceNow with token instead of the configured basic credentials.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// Client handles communication with the ServiceNow Table API.
type Client struct {
	baseURL      string
	endpointPath string
	username     string
	password     string
	listLimit    int
	httpClient   *http.Client
	retryConfig  RetryConfig
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewClient creates a new ServiceNow API client. m may be nil.
func NewClient(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      cfg.ServiceNowBaseURL,
		endpointPath: cfg.ServiceNowEndpointPath,
		username:     cfg.ServiceNowUsername,
		password:     cfg.ServiceNowPassword,
		listLimit:    cfg.ServiceNowListLimit,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		retryConfig:  DefaultRetryConfig(),
		metrics:      m,
		logger:       logger,
	}
}

// ListIncidents returns the most recently created incidents.
func (c *Client) ListIncidents(ctx context.Context) ([]models.ServiceNowResult, error) {
	query := url.Values{}
	query.Set("sysparm_query", "ORDERBYDESCsys_created_on")
	query.Set("sysparm_fields", models.ServiceNowIncidentFields)
	if c.listLimit > 0 {
		query.Set("sysparm_limit", strconv.Itoa(c.listLimit))
	}
	endpoint := c.baseURL + c.endpointPath + "?" + query.Encode()

	var result []models.ServiceNowResult

	err := c.observe("list", func() error {
		return WithRetry(ctx, c.retryConfig, func() error {
			var listResp models.ServiceNowListResponse
			if err := c.do(ctx, http.MethodGet, endpoint, nil, &listResp); err != nil {
				return err
			}
			result = listResp.Result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("listed incidents", "count", len(result))
	return result, nil
}

// CreateIncident creates a new incident in ServiceNow and returns the stored record.
// It is sent once: retrying a create could open a duplicate incident.
func (c *Client) CreateIncident(ctx context.Context, incident models.ServiceNowIncident) (*models.ServiceNowResult, error) {
	endpoint := c.baseURL + c.endpointPath

	body, err := json.Marshal(incident)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal incident: %w", err)
	}

	c.logger.Debug("creating incident in ServiceNow",
		"short_description", incident.ShortDescription,
		"impact", incident.Impact,
		"urgency", incident.Urgency,
	)

	var snowResp models.ServiceNowResponse
	err = c.observe("create", func() error {
		return c.do(ctx, http.MethodPost, endpoint, body, &snowResp)
	})
	if err != nil {
		return nil, err
	}

	return &snowResp.Result, nil
}

// UpdateIncident applies a partial update to an incident.
func (c *Client) UpdateIncident(ctx context.Context, sysID string, payload models.ServiceNowUpdatePayload) (*models.ServiceNowResult, error) {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, c.endpointPath, url.PathEscape(sysID))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update payload: %w", err)
	}

	c.logger.Debug("updating incident in ServiceNow",
		"sys_id", sysID,
	)

	var snowResp models.ServiceNowResponse
	err = c.observe("update", func() error {
		return WithRetry(ctx, c.retryConfig, func() error {
			return c.do(ctx, http.MethodPatch, endpoint, body, &snowResp)
		})
	})
	if err != nil {
		return nil, err
	}

	return &snowResp.Result, nil
}

// DeleteIncident removes an incident.
func (c *Client) DeleteIncident(ctx context.Context, sysID string) error {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, c.endpointPath, url.PathEscape(sysID))

	c.logger.Debug("deleting incident in ServiceNow",
		"sys_id", sysID,
	)

	attempt := 0
	return c.observe("delete", func() error {
		return WithRetry(ctx, c.retryConfig, func() error {
			attempt++
			err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)

			// A 404 on a retry means an earlier attempt deleted the record
			// but its response was lost.
			var upstream *RetryableError
			if attempt > 1 && errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
				c.logger.Info("incident already deleted by an earlier attempt",
					"sys_id", sysID,
					"attempt", attempt,
				)
				return nil
			}
			return err
		})
	})
}

// MaxRequestDuration is the longest a retried call can take: every attempt
// hitting the HTTP timeout plus the backoff between attempts.
func (c *Client) MaxRequestDuration() time.Duration {
	return c.retryConfig.MaxDuration(c.httpClient.Timeout)
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// observe times fn and records its outcome.
func (c *Client) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if c.metrics != nil {
		c.metrics.ServiceNowDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.ServiceNowRequests.WithLabelValues(operation, status).Inc()
	}
	return err
}

// setHeaders sets common headers for ServiceNow API requests.
func (c *Client) setHeaders(req *http.Request) {
	if token, ok := req.Context().Value(bearerKey{}).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// checkResponse validates the HTTP response from ServiceNow.
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	c.logger.Error("ServiceNow API error",
		"status_code", resp.StatusCode,
		"response", string(body),
	)

	return &RetryableError{
		Err:        fmt.Errorf("ServiceNow API returned status %d: %s", resp.StatusCode, string(body)),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
