// Package metrics defines interfaces and event payloads for recording
// fleet observability data. Sinks like PromSink and InfluxSink implement
// the recorder interfaces and can be combined with NewMultiSink; the
// factory helpers return a MultiSink automatically when multiple sinks
// are configured.
package metrics
