package types

import (
	"net/url"
	"time"
)

// UpdateParams holds the input of a single update request.
type UpdateParams struct {
	Project     string        // Compose project label value.
	Service     string        // Compose service label value.
	StrictMatch bool          // Reject ambiguous matches instead of taking the first.
	Timeout     time.Duration // Bound applied to every engine call, zero for none.
}

// Key returns the lock key for the request.
//
// Both parts are path-escaped so that a "/" inside a label value cannot make
// two different services share a key.
//
// Returns:
//   - string: "project/service" with each part escaped.
func (p UpdateParams) Key() string {
	return url.PathEscape(p.Project) + "/" + url.PathEscape(p.Service)
}

// UpdateResult describes the outcome of a successful update request.
type UpdateResult struct {
	ContainerName  string      // Name of the located container.
	OldImageID     ImageID     // Image the container was bound to.
	NewImageID     ImageID     // Image produced by the pull.
	ImageTag       string      // Tag that was pulled.
	Recreated      bool        // False when the container was already up to date.
	NewContainerID ContainerID // ID of the replacement, empty when not recreated.
}
