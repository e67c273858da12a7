package compose

import (
	"github.com/sirupsen/logrus"
)

// Docker Compose labels.
const (
	// ComposeProjectLabel specifies the project name of the container in Docker Compose.
	ComposeProjectLabel = "com.docker.compose.project"
	// ComposeServiceLabel specifies the service name of the container in Docker Compose.
	ComposeServiceLabel = "com.docker.compose.service"
	// ComposeContainerNumber specifies the container number of the container in Docker Compose.
	ComposeContainerNumber = "com.docker.compose.container-number"
)

// GetContainerNumber extracts the container number from the Docker Compose labels.
//
// If the com.docker.compose.container-number is present, returns its value.
// Otherwise, returns an empty string.
//
// Parameters:
//   - labels: Map of container labels.
//
// Returns:
//   - string: Container replica number if present, empty string otherwise.
func GetContainerNumber(labels map[string]string) string {
	if labels == nil {
		return ""
	}

	containerNumber, ok := labels[ComposeContainerNumber]
	if !ok {
		return ""
	}

	logrus.WithFields(logrus.Fields{
		"label": ComposeContainerNumber,
		"value": containerNumber,
	}).Debug("Retrieved container replica number")

	return containerNumber
}

// IsService reports whether labels place a container in the given project and service.
//
// Both labels must be present; a container missing either never matches.
//
// Parameters:
//   - labels: Map of container labels.
//   - project: Expected project name.
//   - service: Expected service name.
//
// Returns:
//   - bool: True when both labels are present and equal.
func IsService(labels map[string]string, project, service string) bool {
	gotProject, ok := labels[ComposeProjectLabel]
	if !ok || gotProject != project {
		return false
	}

	gotService, ok := labels[ComposeServiceLabel]

	return ok && gotService == service
}
