// Package types defines the core interfaces and records shared across redock.
// It provides abstractions for containers, images, the container engine, and
// the parameters and results of a recreate.
//
// Key components:
//   - Container: Read-only handle on an inspected container.
//   - Image: Inspected image record with its default config.
//   - Client: Engine collaborator used by the recreate pipeline.
//   - RunSpec: Everything needed to create and start the replacement container.
//   - UpdateParams / UpdateResult: Input and outcome of one update request.
//   - Filter: Function type for container filtering.
//   - UpdateError: Error taxonomy mapped onto HTTP statuses.
//
// Usage example:
//
//	params := types.UpdateParams{Project: "shop", Service: "web", Timeout: time.Minute}
//	result, err := recreator.Update(ctx, params)
//	if errors.Is(err, types.ErrNotFound) {
//	    // respond 404
//	}
package types
