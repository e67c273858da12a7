package update

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/pkg/api"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// Updater performs a single update request.
type Updater interface {
	Update(ctx context.Context, params types.UpdateParams) (*types.UpdateResult, error)
}

// Handler serves GET /update/{project}/{service}.
type Handler struct {
	updater     Updater
	Path        string        // ServeMux pattern.
	strictMatch bool          // Reject ambiguous compose services.
	timeout     time.Duration // Bound for each engine call.
}

// New creates a new Handler instance.
//
// Parameters:
//   - updater: Operation performing the update.
//   - strictMatch: Reject services matched by several containers.
//   - timeout: Bound applied to each engine call.
//
// Returns:
//   - *Handler: Initialized handler.
func New(updater Updater, strictMatch bool, timeout time.Duration) *Handler {
	return &Handler{
		updater:     updater,
		Path:        "GET /update/{project}/{service}",
		strictMatch: strictMatch,
		timeout:     timeout,
	}
}

// Handle runs the update for the service named in the path.
//
// Success, including a container that was already up to date, answers 200
// {"status":"ok"}. Failures answer {"detail": "..."} with the status from
// api.StatusFor; engine details are logged but never returned.
//
// Parameters:
//   - w: HTTP response writer.
//   - r: HTTP request carrying the project and service path values.
func (handle *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	params := types.UpdateParams{
		Project:     r.PathValue("project"),
		Service:     r.PathValue("service"),
		StrictMatch: handle.strictMatch,
		Timeout:     handle.timeout,
	}

	clog := logrus.WithFields(logrus.Fields{
		"project": params.Project,
		"service": params.Service,
	})
	clog.Info("Received update request")

	_, err := handle.updater.Update(r.Context(), params)
	if err != nil {
		status, detail := api.StatusFor(err)
		if status >= http.StatusInternalServerError {
			clog.WithError(err).WithField("status", status).Error("Update request failed")
		} else {
			clog.WithError(err).WithField("status", status).Warn("Update request rejected")
		}

		api.WriteDetail(w, status, detail)

		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
