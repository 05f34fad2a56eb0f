// Package metrics owns the pipeline counters, consistent snapshots with
// derived rates, and their Prometheus export.
package metrics
