// Package metrics provides the HTTP handler exposing update metrics in the
// Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholas-fedor/redock/pkg/metrics"
)

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Path    string
	Handle  http.Handler
	Metrics *metrics.Metrics
}

// New is a factory function creating a new metrics Handler.
//
// Parameters:
//   - gatherer: Registry holding the collectors to expose.
//   - m: Metrics handler feeding the registry.
//
// Returns:
//   - *Handler: Handler serving the registry on GET /metrics.
func New(gatherer prometheus.Gatherer, m *metrics.Metrics) *Handler {
	return &Handler{
		Path: "GET /metrics",
		Handle: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
		Metrics: m,
	}
}
