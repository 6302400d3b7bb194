// Package audio owns the audio output domain. It wraps the pactl command
// line client and runs the worker that keeps the default sink, its volume,
// and the available-device list in the store, persisting applied changes
// back into the settings document.
package audio
