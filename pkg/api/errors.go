package api

import (
	"errors"
	"net/http"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// Causes of rejected authentication, logged server-side only.
var (
	// errAPIKeyUnset indicates the key provider returned an empty key.
	errAPIKeyUnset = errors.New("no API key configured")
	// errAPIKeyMismatch indicates the request header was missing or different.
	errAPIKeyMismatch = errors.New("request API key does not match")
)

// StatusFor maps a classified error onto an HTTP status and caller-facing detail.
//
// Errors that are not a *types.UpdateError, or carry an unknown kind, answer
// 500 with a generic detail so that engine messages never reach the caller.
//
// Parameters:
//   - err: Error to classify.
//
// Returns:
//   - int: HTTP status code.
//   - string: Detail safe to return.
func StatusFor(err error) (int, string) {
	var updateErr *types.UpdateError
	if !errors.As(err, &updateErr) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch {
	case errors.Is(updateErr.Kind, types.ErrUnauthorized):
		return http.StatusForbidden, updateErr.Detail
	case errors.Is(updateErr.Kind, types.ErrNotFound):
		return http.StatusNotFound, updateErr.Detail
	case errors.Is(updateErr.Kind, types.ErrConflict):
		return http.StatusConflict, updateErr.Detail
	case errors.Is(updateErr.Kind, types.ErrTimeout):
		return http.StatusGatewayTimeout, updateErr.Detail
	case errors.Is(updateErr.Kind, types.ErrMisconfigured):
		return http.StatusInternalServerError, updateErr.Detail
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// WriteError answers with the status and detail StatusFor assigns to err.
//
// Parameters:
//   - w: HTTP response writer.
//   - err: Error to report.
//
// Returns:
//   - int: Status written.
func WriteError(w http.ResponseWriter, err error) int {
	status, detail := StatusFor(err)
	WriteDetail(w, status, detail)

	return status
}
