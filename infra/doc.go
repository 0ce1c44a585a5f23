// Package infra holds the technology-specific adapters: the paho MQTT
// client, the Prometheus and InfluxDB metric sinks, the Sentry reporter
// and the zerolog-backed logger. Each adapter implements an interface
// declared under core, so domain packages never import a vendor SDK.
package infra
