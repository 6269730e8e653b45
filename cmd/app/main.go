// Package main is the entrypoint for the incident console's ServiceNow proxy.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cragr/snow-incident-console/internal/config"
	"github.com/cragr/snow-incident-console/internal/logging"
	"github.com/cragr/snow-incident-console/internal/metrics"
	"github.com/cragr/snow-incident-console/internal/proxy"
	"github.com/cragr/snow-incident-console/internal/servicenow"
)

func main() {
	// Initialize logger
	logger := logging.NewLogger()
	logger.Info("starting snow-incident-proxy")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger = logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("configuration loaded",
		"http_port", cfg.HTTPPort,
		"servicenow_base_url", cfg.ServiceNowBaseURL,
		"servicenow_auth_mode", cfg.ServiceNowAuthMode,
		"list_limit", cfg.ServiceNowListLimit,
		"session_cookie", cfg.SessionCookieName,
	)

	m := metrics.New(prometheus.DefaultRegisterer)

	// Create ServiceNow client
	snowClient := servicenow.NewClient(cfg, m, logging.WithComponent(logger, "servicenow"))

	// Create incident API handler
	apiHandler := proxy.NewHandler(snowClient, cfg, m, logging.WithComponent(logger, "proxy"))

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Incident API
	mux.Handle("/api/", apiHandler)

	// Health and readiness probes
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", readyzHandler)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	server := newServer(addr, mux, snowClient.MaxRequestDuration())

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// writeTimeoutMargin covers encoding the response after the upstream call.
const writeTimeoutMargin = 10 * time.Second

// newServer builds the HTTP server. The write timeout outlasts the longest
// retried ServiceNow call so its response is not cut off.
func newServer(addr string, handler http.Handler, upstream time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: upstream + writeTimeoutMargin,
		IdleTimeout:  60 * time.Second,
	}
}

// healthzHandler handles liveness probe requests.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// readyzHandler handles readiness probe requests.
func readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
