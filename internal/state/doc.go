// Package state holds the shared state store for the kiosk daemon.
//
// The Store is the only mutable structure shared between goroutines; all
// other coordination happens over the message queues in internal/bus. Each
// field has a single writer (its owning worker), everyone may read, and
// every accessor deep-copies so callers can never alias the store's
// internals.
//
// The lock protects the copy and nothing else: no I/O, no external call,
// and no callback ever runs while it is held.
package state
