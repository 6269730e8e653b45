// Package proxy serves the incident API consumed by the console and
// forwards it to the ServiceNow Table API.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/cragr/snow-incident-console/internal/config"
	"github.com/cragr/snow-incident-console/internal/metrics"
	"github.com/cragr/snow-incident-console/internal/models"
	"github.com/cragr/snow-incident-console/internal/servicenow"
)

// maxBodyBytes caps request bodies accepted by the proxy.
const maxBodyBytes = 1 << 20

// ServiceNowClient defines the interface for ServiceNow operations.
type ServiceNowClient interface {
	ListIncidents(ctx context.Context) ([]models.ServiceNowResult, error)
	CreateIncident(ctx context.Context, incident models.ServiceNowIncident) (*models.ServiceNowResult, error)
	UpdateIncident(ctx context.Context, sysID string, payload models.ServiceNowUpdatePayload) (*models.ServiceNowResult, error)
	DeleteIncident(ctx context.Context, sysID string) error
}

// Handler serves /api/incidents and /api/session.
type Handler struct {
	snowClient   ServiceNowClient
	cookieName   string
	forwardToken bool
	metrics      *metrics.Metrics
	logger       *slog.Logger
	mux          *http.ServeMux
}

// NewHandler creates a new proxy handler. m may be nil.
func NewHandler(snowClient ServiceNowClient, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Handler {
	h := &Handler{
		snowClient:   snowClient,
		cookieName:   cfg.SessionCookieName,
		forwardToken: cfg.ServiceNowAuthMode == config.AuthModeOAuth,
		metrics:      m,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /api/session", h.handleSession)
	h.mux.HandleFunc("GET /api/incidents", h.authenticated("list", h.handleList))
	h.mux.HandleFunc("POST /api/incidents", h.authenticated("create", h.handleCreate))
	h.mux.HandleFunc("PUT /api/incidents/{sys_id}", h.authenticated("update", h.handleUpdate))
	h.mux.HandleFunc("DELETE /api/incidents/{sys_id}", h.authenticated("delete", h.handleDelete))

	return h
}

type loggerKey struct{}

// ServeHTTP tags the request with an id and dispatches it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	logger := h.logger.With("request_id", requestID)
	ctx := context.WithValue(r.Context(), loggerKey{}, logger)

	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

// log returns the request-scoped logger.
func (h *Handler) log(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return h.logger
}

// sessionToken returns the session cookie value, or "" when absent.
func (h *Handler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticated rejects requests without a session cookie. Identity is
// established by the identity provider that issued the cookie.
func (h *Handler) authenticated(operation string, next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			h.log(r.Context()).Warn("rejected unauthenticated request",
				"operation", operation,
				"path", r.URL.Path,
			)
			h.writeJSON(w, operation, http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
			return
		}

		if h.forwardToken {
			r = r.WithContext(servicenow.WithBearerToken(r.Context(), token))
		}
		next(w, r)
	}
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, "session", http.StatusOK, models.SessionResponse{
		Authenticated: h.sessionToken(r) != "",
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.snowClient.ListIncidents(r.Context())
	if err != nil {
		h.writeUpstreamError(w, r, "list", err)
		return
	}

	h.writeJSON(w, "list", http.StatusOK, models.ListResponse{Result: ToIncidents(records)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIncidentRequest
	if !h.decode(w, r, "create", &req) {
		return
	}

	incident, err := ToServiceNowIncident(req)
	if err != nil {
		h.writeJSON(w, "create", http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	created, err := h.snowClient.CreateIncident(r.Context(), incident)
	if err != nil {
		h.writeUpstreamError(w, r, "create", err)
		return
	}

	h.log(r.Context()).Info("created incident in ServiceNow",
		"incident_number", created.Number,
		"sys_id", created.SysID,
	)

	h.writeJSON(w, "create", http.StatusCreated, models.IncidentResponse{Result: ToIncident(*created)})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sysID := r.PathValue("sys_id")

	var req models.UpdateIncidentRequest
	if !h.decode(w, r, "update", &req) {
		return
	}

	payload, err := ToUpdatePayload(req)
	if err != nil {
		h.writeJSON(w, "update", http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	updated, err := h.snowClient.UpdateIncident(r.Context(), sysID, payload)
	if err != nil {
		h.writeUpstreamError(w, r, "update", err)
		return
	}

	h.log(r.Context()).Info("updated incident in ServiceNow",
		"sys_id", sysID,
		"incident_number", updated.Number,
	)

	h.writeJSON(w, "update", http.StatusOK, models.IncidentResponse{Result: ToIncident(*updated)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sysID := r.PathValue("sys_id")

	if err := h.snowClient.DeleteIncident(r.Context(), sysID); err != nil {
		h.writeUpstreamError(w, r, "delete", err)
		return
	}

	h.log(r.Context()).Info("deleted incident in ServiceNow", "sys_id", sysID)

	h.writeJSON(w, "delete", http.StatusOK, models.DeleteResponse{Success: true})
}

// decode reads a JSON body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, operation string, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.log(r.Context()).Error("failed to read request body", "error", err)
		h.writeJSON(w, operation, http.StatusBadRequest, models.ErrorResponse{Error: "failed to read request body"})
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		h.log(r.Context()).Error("failed to parse request body", "operation", operation, "error", err)
		h.writeJSON(w, operation, http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

// writeUpstreamError maps a ServiceNow failure to a proxy error response.
// Upstream 4xx keep their status and error object; everything else is a 502.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.log(r.Context()).Error("ServiceNow request failed",
		"operation", operation,
		"error", err,
	)

	var upstream *servicenow.RetryableError
	if errors.As(err, &upstream) {
		status := http.StatusBadGateway
		if servicenow.IsClientError(upstream.StatusCode) {
			status = upstream.StatusCode
		}

		var snowErr models.ServiceNowError
		if json.Unmarshal(upstream.Body, &snowErr) == nil && snowErr.Error.Message != "" {
			h.writeJSON(w, operation, status, models.ErrorResponse{Error: snowErr.Error})
			return
		}
		h.writeJSON(w, operation, status, models.ErrorResponse{
			Error: "ServiceNow returned status " + strconv.Itoa(upstream.StatusCode),
		})
		return
	}

	h.writeJSON(w, operation, http.StatusBadGateway, models.ErrorResponse{Error: "ServiceNow request failed"})
}

// writeJSON writes v with the given status and counts the response.
func (h *Handler) writeJSON(w http.ResponseWriter, operation string, status int, v any) {
	if h.metrics != nil {
		h.metrics.APIRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "operation", operation, "error", err)
	}
}
