// Package logbook provides the application log pipeline: a Recorder facade
// that workers use to publish categorised entries onto the shared log queue,
// and an Aggregator that consumes the queue, batches entries into rotating
// disk files, keeps a bounded ring of recent entries for the control API and
// fans entries out to registered sinks such as the websocket hub.
//
// This is the user-facing activity log. Operational diagnostics go through
// the structured logger in internal/infrastructure/logging; Recorder mirrors
// every entry there so operators still see a single stream.
package logbook
