// Package util provides utility functions for redock operations.
// It includes tools for slice and map manipulation, duration formatting, and SHA-256 hashing.
//
// Key components:
//   - SliceEqual: Compares string slices element-wise.
//   - SliceSubtract: Removes elements from string slices, keeping source order.
//   - MapSubtract: Removes matching key-value pairs from maps of any comparable value.
//   - FormatDuration: Renders durations as "1 minute, 3 seconds".
//   - GenerateRandomSHA256: Creates random 64-character SHA-256 hashes.
//
// Usage example:
//
//	equal := util.SliceEqual(slice1, slice2)
//	labels := util.MapSubtract(containerLabels, imageLabels)
//	hash := util.GenerateRandomSHA256()
package util
