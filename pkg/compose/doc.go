// Package compose provides functionality for handling Docker Compose labels,
// used to locate the container backing a compose service.
//
// Key components:
//   - GetContainerNumber: Reads the replica number of scaled services.
//   - IsService: Matches a label set against a project and service.
//
// Usage example:
//
//	if compose.IsService(c.Labels(), "shop", "web") {
//	    replica := compose.GetContainerNumber(c.Labels())
//	}
package compose
