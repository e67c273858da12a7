package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// APIKeyHeader is the request header carrying the API key.
const APIKeyHeader = "X-Api-Key"

// HealthPath is the unauthenticated liveness endpoint.
const HealthPath = "/health"

// readHeaderTimeout is the timeout for reading request headers.
const readHeaderTimeout = 10 * time.Second

// shutdownTimeout is the timeout for graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// KeyProvider returns the currently configured API key, empty when unset.
type KeyProvider func() string

// API represents the HTTP API server.
type API struct {
	Addr       string
	apiKey     KeyProvider
	registered bool
	mux        *http.ServeMux
	server     HTTPServer // Optional injected server for testing.
}

// HTTPServer interface for RunHTTPServer.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// New is a factory function creating a new API instance with the health
// endpoint already registered.
//
// Parameters:
//   - apiKey: Provider consulted on every authenticated request.
//   - addr: Listen address.
//   - server: Optional server replacing the real one in tests.
//
// Returns:
//   - *API: API ready for handler registration.
func New(apiKey KeyProvider, addr string, server ...HTTPServer) *API {
	var injectedServer HTTPServer
	if len(server) > 0 {
		injectedServer = server[0]
	}

	api := &API{
		Addr:   addr,
		apiKey: apiKey,
		mux:    http.NewServeMux(),
		server: injectedServer,
	}

	api.mux.HandleFunc("GET "+HealthPath, HealthHandler)

	logrus.WithField("addr", api.Addr).Debug("Initialized new API instance")

	return api
}

// RegisterFunc registers an HTTP handler function for the given pattern.
//
// Parameters:
//   - pattern: ServeMux pattern, e.g. "GET /update/{project}/{service}".
//   - handler: Handler function.
func (a *API) RegisterFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	a.mux.HandleFunc(pattern, handler)
	a.registered = true
}

// RegisterHandler registers an HTTP handler for the given pattern.
//
// Parameters:
//   - pattern: ServeMux pattern.
//   - handler: Handler.
func (a *API) RegisterHandler(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
	a.registered = true
}

// Handler returns the complete request pipeline: access log around the routes.
//
// Returns:
//   - http.Handler: Root handler.
func (a *API) Handler() http.Handler {
	return AccessLog(a.mux)
}

// Start starts the HTTP API server.
// If blocking is true, it runs in the foreground until ctx is done.
// If blocking is false, it runs in the background and shuts down when ctx is done.
//
// Parameters:
//   - ctx: Lifetime of the server.
//   - blocking: Whether to wait for the server to stop.
//
// Returns:
//   - error: Listen failure in blocking mode.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.registered {
		logrus.Info("No handlers registered, skipping API start")

		return nil
	}

	if a.apiKey == nil || a.apiKey() == "" {
		logrus.Warn("API_KEY is not set, update requests will be refused until it is")
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// RequireAPIKey wraps a handler with API key authentication.
//
// The key is fetched from the provider on every request. An unset key is a
// server fault and yields 500; a missing or different header yields 403. The
// wrapped handler does not run in either case.
//
// Parameters:
//   - next: Handler to protect.
//
// Returns:
//   - http.Handler: Authenticating handler.
func (a *API) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var expected string
		if a.apiKey != nil {
			expected = a.apiKey()
		}

		if expected == "" {
			err := types.NewUpdateError(types.ErrMisconfigured, "API_KEY is not set", errAPIKeyUnset)
			logrus.WithError(err).Error("Refusing authenticated request")
			WriteError(w, err)

			return
		}

		provided := r.Header.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			err := types.NewUpdateError(types.ErrUnauthorized, "Invalid API key", errAPIKeyMismatch)
			logrus.WithError(err).WithField("path", r.URL.Path).Debug("Rejected request with invalid API key")
			WriteError(w, err)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// AccessLog logs method, path, status and duration of every request except
// health checks.
//
// Parameters:
//   - next: Handler to log.
//
// Returns:
//   - http.Handler: Logging handler.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == HealthPath {
			next.ServeHTTP(w, r)

			return
		}

		m := httpsnoop.CaptureMetrics(next, w, r)

		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   m.Code,
			"duration": m.Duration,
			"remote":   r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// HealthHandler reports that the process is serving.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WriteDetail writes an error response of the form {"detail": "..."}.
//
// Parameters:
//   - w: Response writer.
//   - status: HTTP status code.
//   - detail: Caller-facing message.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, map[string]string{"detail": detail})
}

// WriteJSON writes body as a JSON response.
//
// Parameters:
//   - w: Response writer.
//   - status: HTTP status code.
//   - body: Value to encode.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write JSON response")
	}
}

// RunHTTPServer starts the HTTP server and handles graceful shutdown.
//
// Parameters:
//   - ctx: Cancelling it shuts the server down.
//   - server: Server to run.
//
// Returns:
//   - error: Listen or shutdown failure, nil after a clean shutdown.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
