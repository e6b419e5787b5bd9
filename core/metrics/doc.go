// Package metrics defines the sinks evaluation results are recorded to.
// Sinks like PromSink and InfluxSink record fleet aggregates and per-bus
// state for every cycle and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are configured.
package metrics
