// Package filters provides the container lookup used by redock.
// It selects running containers by their compose project and service labels.
//
// Key components:
//   - FilterByComposeService: Chains a compose label check onto a base filter.
//   - Locate: Returns the first matching container in engine listing order.
//
// Usage example:
//
//	c, err := filters.Locate(containers, "shop", "web", false)
//	if c == nil && err == nil {
//	    // no container runs shop/web
//	}
package filters
