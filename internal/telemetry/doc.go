// Package telemetry initializes the OpenTelemetry SDK: a centralized
// TracerProvider and MeterProvider configuration for the service. When
// telemetry is disabled it stays noop and connects to nothing.
package telemetry
