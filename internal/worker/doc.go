// Package worker provides the generic worker runtime: a single-slot command
// inbox with last-write-wins coalescing, a Runner that drives each domain
// worker through its bounded-wait loop, and a Supervisor that owns the
// worker goroutines and routes commands from the shared queue to the right
// inbox by domain prefix.
//
// Domain behaviour lives in the per-domain packages (internal/audio,
// internal/bluetooth, ...); this package only knows the lifecycle.
package worker
