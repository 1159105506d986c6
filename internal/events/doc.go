// Package events provides the observability event bus. The workflow
// engine publishes run and node lifecycle events; the CLI and log sinks
// subscribe with optional filtering.
package events
