// Package metrics tracks update request outcomes and exposes them to Prometheus.
//
// Outcomes are queued on a buffered channel and folded into collectors by a
// background goroutine, so recording a metric never blocks an update.
package metrics
