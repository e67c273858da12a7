// Package api assembles redock's HTTP API from the generic server in pkg/api
// and the update and metrics handlers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/pkg/api"
	metricsAPI "github.com/nicholas-fedor/redock/pkg/api/metrics"
	"github.com/nicholas-fedor/redock/pkg/api/update"
	"github.com/nicholas-fedor/redock/pkg/metrics"
)

// Config holds the settings the HTTP API is built from.
type Config struct {
	Addr          string        // Listen address.
	EnableMetrics bool          // Expose GET /metrics.
	StrictMatch   bool          // Reject ambiguous compose services.
	Timeout       time.Duration // Bound for each engine call of an update.
}

// Dependencies holds the collaborators wired into the handlers.
type Dependencies struct {
	APIKey   api.KeyProvider     // Consulted on every authenticated request.
	Updater  update.Updater      // Runs update requests.
	Gatherer prometheus.Gatherer // Registry exposed on /metrics, required when metrics are enabled.
	Metrics  *metrics.Metrics    // Metrics handler feeding the registry.
}

// NewAPI builds the HTTP API with every enabled route registered.
//
// The update endpoint and, when enabled, the metrics endpoint sit behind the
// API key middleware. The health endpoint is always public.
//
// Parameters:
//   - cfg: API settings.
//   - deps: Handler collaborators.
//   - server: Optional server replacing the real one in tests.
//
// Returns:
//   - *api.API: Configured API, not yet started.
func NewAPI(cfg Config, deps Dependencies, server ...api.HTTPServer) *api.API {
	httpAPI := api.New(deps.APIKey, cfg.Addr, server...)

	updateHandler := update.New(deps.Updater, cfg.StrictMatch, cfg.Timeout)
	httpAPI.RegisterHandler(updateHandler.Path, httpAPI.RequireAPIKey(http.HandlerFunc(updateHandler.Handle)))

	if cfg.EnableMetrics && deps.Gatherer != nil {
		metricsHandler := metricsAPI.New(deps.Gatherer, deps.Metrics)
		httpAPI.RegisterHandler(metricsHandler.Path, httpAPI.RequireAPIKey(metricsHandler.Handle))

		logrus.Debug("Metrics endpoint enabled")
	}

	return httpAPI
}

// SetupAndStartAPI builds the HTTP API and serves it until ctx is cancelled.
//
// Parameters:
//   - ctx: Lifetime of the server; cancelling it shuts the server down gracefully.
//   - cfg: API settings.
//   - deps: Handler collaborators.
//   - server: Optional server replacing the real one in tests.
//
// Returns:
//   - error: An error if the API fails to start (excluding clean shutdown), nil otherwise.
func SetupAndStartAPI(ctx context.Context, cfg Config, deps Dependencies, server ...api.HTTPServer) error {
	httpAPI := NewAPI(cfg, deps, server...)

	if err := httpAPI.Start(ctx, true); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
