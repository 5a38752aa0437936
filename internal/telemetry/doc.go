// Package telemetry wires OpenTelemetry for the Sizzle binaries.
//
// Traces, metrics and logs are exported over OTLP/HTTP. Grafana Cloud style
// endpoints with an /otlp base path and plain collectors are both supported.
package telemetry
