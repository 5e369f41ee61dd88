// Package metrics collects Prometheus metrics for the HTTP surface,
// task dispatch, and agent runs. All metrics are registered through a
// single Collector so the namespace and registry stay in one place.
package metrics
