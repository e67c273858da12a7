// Package overrides reconstructs the settings an operator supplied at run time
// by diffing a container's effective config against its image's defaults.
//
// Each shape of field has its own primitive:
//   - Scalar: User and WorkingDir.
//   - Map: Labels and Volumes.
//   - List: Entrypoint and Cmd, treated atomically.
//   - Env: set difference over "KEY=value" entries.
//
// Compute applies the primitives field by field. All functions are pure and
// never alias their inputs.
//
// Usage example:
//
//	cfg := overrides.Compute(
//	    overrides.FromContainerConfig(c.Config()),
//	    overrides.FromImageConfig(oldImage.Config),
//	)
package overrides
