// Package infra groups the adapters of the depot service: telemetry
// providers, MQTT transport, history stores, metrics sinks and logging.
// They implement interfaces declared under core and are wired in app.
package infra
