// Package bus provides the message plumbing between the kiosk daemon's
// components: a generic unbounded FIFO queue and the four typed channels
// built on it (weather updates, config reload notices, commands, log
// entries).
//
// Each queue is multi-producer, single-consumer. Sends never block;
// receives take a timeout so consumers can do periodic housekeeping when
// idle. There is no cross-queue ordering guarantee.
package bus
