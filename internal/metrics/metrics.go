// Package metrics defines the Prometheus collectors exported by the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the proxy's collectors.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	ServiceNowRequests *prometheus.CounterVec
	ServiceNowDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snowconsole_api_requests_total",
				Help: "Total number of incident API requests served by the proxy",
			},
			[]string{"operation", "status"},
		),
		ServiceNowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snowconsole_servicenow_requests_total",
				Help: "Total number of requests to ServiceNow",
			},
			[]string{"operation", "status"},
		),
		ServiceNowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snowconsole_servicenow_request_duration_seconds",
				Help:    "Latency of ServiceNow Table API calls, including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.APIRequests, m.ServiceNowRequests, m.ServiceNowDuration)
	return m
}
