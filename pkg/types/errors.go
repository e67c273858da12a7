package types

import (
	"errors"
)

// Error kinds mapped onto HTTP statuses by the update handler.
var (
	// ErrUnauthorized indicates the API key did not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the container, image or tag could not be found.
	ErrNotFound = errors.New("not found")
	// ErrMisconfigured indicates the service is missing required configuration.
	ErrMisconfigured = errors.New("misconfigured")
	// ErrConflict indicates the request collided with another one or was ambiguous.
	ErrConflict = errors.New("conflict")
	// ErrTimeout indicates an engine call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrEngine indicates any other engine failure.
	ErrEngine = errors.New("engine failure")
)

// UpdateError is a classified failure carrying a caller-safe detail message.
type UpdateError struct {
	Kind   error  // One of the sentinel kinds above.
	Detail string // Message safe to return to the caller.
	Err    error  // Underlying cause, logged server-side only.
}

// NewUpdateError builds a classified error.
//
// Parameters:
//   - kind: Sentinel kind.
//   - detail: Caller-safe message.
//   - err: Underlying cause, may be nil.
//
// Returns:
//   - *UpdateError: Classified error.
func NewUpdateError(kind error, detail string, err error) *UpdateError {
	return &UpdateError{Kind: kind, Detail: detail, Err: err}
}

func (e *UpdateError) Error() string {
	if e.Err == nil {
		return e.Detail
	}

	return e.Detail + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *UpdateError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
